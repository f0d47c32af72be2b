package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/opentribe/membership/internal/admission"
	admissiondomain "github.com/opentribe/membership/internal/admission/domain"
	"github.com/opentribe/membership/internal/alerting"
	"github.com/opentribe/membership/internal/captcha"
	"github.com/opentribe/membership/internal/community"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	"github.com/opentribe/membership/internal/config"
	"github.com/opentribe/membership/internal/identity"
	"github.com/opentribe/membership/internal/invitation"
	invitationdomain "github.com/opentribe/membership/internal/invitation/domain"
	"github.com/opentribe/membership/internal/jobs"
	"github.com/opentribe/membership/internal/listing"
	"github.com/opentribe/membership/internal/membership"
	"github.com/opentribe/membership/internal/observability"
	"github.com/opentribe/membership/internal/person"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	"github.com/opentribe/membership/internal/preferences"
	"github.com/opentribe/membership/internal/profile"
	"github.com/opentribe/membership/internal/providers/email"
	"github.com/opentribe/membership/internal/providers/payment"
	"github.com/opentribe/membership/internal/rdfimport"
	"github.com/opentribe/membership/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	community.Module,
	person.Module,
	listing.Module,
	invitation.Module,
	membership.Module,
	admission.Module,
	profile.Module,
	session.Module,
	captcha.Module,
	alerting.Module,
	identity.Module,
	preferences.Module,
	jobs.Module,
	email.Module,
	payment.Module,
	rdfimport.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.TracingMiddleware())
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry, promhttp.HandlerOpts{},
	)))

	return r
}

func registerGin(metrics *observability.Metrics) *gin.Engine {
	return NewEngine(metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	db           *gorm.DB
	genID        *snowflake.Node
	sessions     *session.Manager
	sessionStore session.Store
	communities  communitydomain.Repository
	persons      persondomain.Repository
	availability persondomain.AvailabilityService
	accounts     persondomain.AccountService
	policy       admissiondomain.Policy
	factory      admissiondomain.Factory
	profileSvc   profile.Workflow
	invites      invitationdomain.Gate
	captcha      captcha.Verifier
	credentials  identity.Service
	importer     rdfimport.Importer
	metrics      *observability.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	DB           *gorm.DB
	GenID        *snowflake.Node
	Sessions     *session.Manager
	SessionStore session.Store
	Communities  communitydomain.Repository
	Persons      persondomain.Repository
	Availability persondomain.AvailabilityService
	Accounts     persondomain.AccountService
	Policy       admissiondomain.Policy
	Factory      admissiondomain.Factory
	ProfileSvc   profile.Workflow
	Invites      invitationdomain.Gate
	Captcha      captcha.Verifier
	Credentials  identity.Service
	Importer     rdfimport.Importer
	Metrics      *observability.Metrics
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		db:           p.DB,
		genID:        p.GenID,
		sessions:     p.Sessions,
		sessionStore: p.SessionStore,
		communities:  p.Communities,
		persons:      p.Persons,
		availability: p.Availability,
		accounts:     p.Accounts,
		policy:       p.Policy,
		factory:      p.Factory,
		profileSvc:   p.ProfileSvc,
		invites:      p.Invites,
		captcha:      p.Captcha,
		credentials:  p.Credentials,
		importer:     p.Importer,
		metrics:      p.Metrics,
	}
}

func (s *Server) RegisterRoutes() {
	people := s.engine.Group("/people")
	people.POST("", s.createPerson)
	people.POST("/social", s.createPersonFromSocial)
	people.GET("/check_username", s.checkUsername)
	people.GET("/check_email", s.checkEmail)
	people.GET("/check_email_for_new_tribe", s.checkEmailForNewTribe)
	people.GET("/check_invitation_code", s.checkInvitationCode)
	people.POST("/check_captcha", s.checkCaptcha)
	people.GET("/prefill", s.prefill)
	people.PUT("/:id", s.updatePerson)
	people.DELETE("/:id", s.deletePerson)
	people.POST("/:id/activate", s.activatePerson)
	people.POST("/:id/deactivate", s.deactivatePerson)
}
