package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/opentribe/membership/internal/admission/service"
	"github.com/opentribe/membership/internal/alerting"
	"github.com/opentribe/membership/internal/captcha"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	communityrepo "github.com/opentribe/membership/internal/community/repository"
	"github.com/opentribe/membership/internal/config"
	"github.com/opentribe/membership/internal/identity"
	invitationdomain "github.com/opentribe/membership/internal/invitation/domain"
	invitationrepo "github.com/opentribe/membership/internal/invitation/repository"
	invitationservice "github.com/opentribe/membership/internal/invitation/service"
	"github.com/opentribe/membership/internal/jobs"
	listingdomain "github.com/opentribe/membership/internal/listing/domain"
	listingrepo "github.com/opentribe/membership/internal/listing/repository"
	membershipdomain "github.com/opentribe/membership/internal/membership/domain"
	membershiprepo "github.com/opentribe/membership/internal/membership/repository"
	"github.com/opentribe/membership/internal/observability"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	personrepo "github.com/opentribe/membership/internal/person/repository"
	personservice "github.com/opentribe/membership/internal/person/service"
	"github.com/opentribe/membership/internal/preferences"
	"github.com/opentribe/membership/internal/profile"
	"github.com/opentribe/membership/internal/providers/email"
	"github.com/opentribe/membership/internal/providers/payment"
	"github.com/opentribe/membership/internal/rdfimport"
	"github.com/opentribe/membership/internal/session"
	"github.com/opentribe/membership/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serverFixture struct {
	engine *gin.Engine
	conn   *gorm.DB
	node   *snowflake.Node
	store  session.Store
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	err = conn.AutoMigrate(
		&communitydomain.Community{},
		&persondomain.Person{},
		&persondomain.Email{},
		&persondomain.Location{},
		&membershipdomain.CommunityMembership{},
		&invitationdomain.Invitation{},
		&listingdomain.Listing{},
		&jobs.Job{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	err = conn.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_membership_single_admin ON community_memberships (community_id) WHERE admin",
	).Error
	if err != nil {
		t.Fatalf("failed to create admin index: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	log := zap.NewNop()
	cfg := config.Config{DefaultLocale: "en", GlobalInvitationCodes: true}
	persons := personrepo.Provide()
	communities := communityrepo.Provide()
	creds := identity.NewNoop()
	mailer := &email.NoOpProvider{}
	queue := jobs.NewOutboxQueue(conn, node)
	registry := payment.NewRegistry(payment.NewMangopay(log), payment.NewCheckout(log))

	availability := personservice.NewAvailability(personservice.AvailabilityParams{
		DB:          conn,
		Log:         log,
		Repo:        persons,
		Communities: communities,
	})
	accounts := personservice.NewAccount(personservice.AccountParams{
		DB:       conn,
		Log:      log,
		Repo:     persons,
		Listings: listingrepo.Provide(),
		Identity: creds,
		Queue:    queue,
	})
	invites := invitationservice.New(invitationservice.Params{
		DB:     conn,
		Log:    log,
		Config: cfg,
		Repo:   invitationrepo.Provide(),
	})
	policy := service.NewPolicy(service.PolicyParams{
		Log:          log,
		Config:       cfg,
		Invites:      invites,
		Availability: availability,
		Captcha:      captcha.AlwaysAccept{},
		Notifier:     alerting.New(log, nil, ""),
	})
	factory := service.NewFactory(service.FactoryParams{
		DB:          conn,
		Log:         log,
		Config:      cfg,
		GenID:       node,
		Persons:     persons,
		Memberships: membershiprepo.Provide(),
		Invites:     invites,
		Credentials: creds,
		Mailer:      mailer,
		Prefs:       preferences.New(conn, persons),
		Queue:       queue,
	})
	workflow := profile.New(profile.Params{
		DB:          conn,
		Log:         log,
		Persons:     persons,
		GenID:       node,
		Registry:    registry,
		Credentials: creds,
		Mailer:      mailer,
	})

	metrics := observability.NewMetrics()
	engine := NewEngine(metrics)
	store := session.NewMemoryStore()
	srv := NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Log:          log,
		DB:           conn,
		GenID:        node,
		Sessions:     session.NewManager(cfg),
		SessionStore: store,
		Communities:  communities,
		Persons:      persons,
		Availability: availability,
		Accounts:     accounts,
		Policy:       policy,
		Factory:      factory,
		ProfileSvc:   workflow,
		Invites:      invites,
		Captcha:      captcha.AlwaysAccept{},
		Credentials:  creds,
		Importer:     rdfimport.New(log, 0),
		Metrics:      metrics,
	})
	srv.RegisterRoutes()

	return &serverFixture{engine: engine, conn: conn, node: node, store: store}
}

func (f *serverFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return payload
}

func TestSignupWithoutCommunity(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodPost, "/people",
		`{"username":"jane","email":"jane@example.org","password":"secret123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	payload := decodeBody(t, w)
	if payload["redirect"] != "new_tenant" {
		t.Fatalf("expected new_tenant redirect, got %v", payload["redirect"])
	}

	var count int64
	f.conn.Model(&persondomain.Person{}).Where("username = ?", "jane").Count(&count)
	if count != 1 {
		t.Fatalf("expected one person, got %d", count)
	}
}

func TestSignupHoneypotRejected(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodPost, "/people",
		`{"username":"bot","email":"bot@example.org","password":"secret123","email_repeated":"bot@example.org"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	payload := decodeBody(t, w)
	errBody, _ := payload["error"].(map[string]any)
	if errBody["reason"] != "spam" {
		t.Fatalf("expected spam rejection, got %s", w.Body.String())
	}

	var count int64
	f.conn.Model(&persondomain.Person{}).Count(&count)
	if count != 0 {
		t.Fatal("expected rejected signup to persist nothing")
	}
}

func TestSignupValidation(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodPost, "/people",
		`{"username":"jane","email":"not-an-address","password":"secret123"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCheckUsername(t *testing.T) {
	f := newServerFixture(t)
	person := &persondomain.Person{
		ID:       f.node.Generate(),
		Username: "jane",
		Email:    "jane@example.org",
		Active:   true,
	}
	if err := f.conn.Create(person).Error; err != nil {
		t.Fatalf("failed to seed person: %v", err)
	}

	w := f.do(t, http.MethodGet, "/people/check_username?username=jane", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if payload := decodeBody(t, w); payload["available"] != false {
		t.Fatalf("expected taken username, got %s", w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/people/check_username?username=free", "")
	if payload := decodeBody(t, w); payload["available"] != true {
		t.Fatalf("expected free username, got %s", w.Body.String())
	}
}

func TestCheckEmailForNewTribe(t *testing.T) {
	f := newServerFixture(t)
	community := &communitydomain.Community{
		ID:                   f.node.Generate(),
		Name:                 "orgtown",
		AllowedEmailPatterns: []string{"@org.example"},
	}
	if err := f.conn.Create(community).Error; err != nil {
		t.Fatalf("failed to seed community: %v", err)
	}

	// A domain-bound category blocks an address another community claims.
	w := f.do(t, http.MethodGet,
		"/people/check_email_for_new_tribe?email=jane@org.example&community_category=company", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["available"] != false {
		t.Fatalf("expected claimed address to block a company tribe, got %s", w.Body.String())
	}
	names, _ := payload["restricting_communities"].([]any)
	if len(names) != 1 || names[0] != "orgtown" {
		t.Fatalf("expected orgtown to be reported, got %s", w.Body.String())
	}

	// An open category ignores the claim.
	w = f.do(t, http.MethodGet,
		"/people/check_email_for_new_tribe?email=jane@org.example&community_category=hobby", "")
	if payload := decodeBody(t, w); payload["available"] != true {
		t.Fatalf("expected open category to ignore the claim, got %s", w.Body.String())
	}

	// No category behaves like an open one.
	w = f.do(t, http.MethodGet,
		"/people/check_email_for_new_tribe?email=jane@org.example", "")
	if payload := decodeBody(t, w); payload["available"] != true {
		t.Fatalf("expected missing category to ignore the claim, got %s", w.Body.String())
	}
}

func TestUpdateRequiresSession(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodPut, "/people/123", `{"given_name":"Jane"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateForbiddenForOtherPerson(t *testing.T) {
	f := newServerFixture(t)

	if err := f.store.Put(t.Context(), "sid-1", session.State{PersonID: 7}); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/people/123", strings.NewReader(`{"given_name":"Jane"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"})
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
