package server

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	admissiondomain "github.com/opentribe/membership/internal/admission/domain"
	"github.com/opentribe/membership/internal/captcha"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	"github.com/opentribe/membership/internal/identity/password"
	"github.com/opentribe/membership/internal/profile"
	"github.com/opentribe/membership/internal/rdfimport"
	"github.com/opentribe/membership/internal/session"
	"github.com/opentribe/membership/pkg/validate"
	"go.uber.org/zap"
)

type captchaPayload struct {
	Challenge string `json:"challenge"`
	Response  string `json:"response"`
}

type signupRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Password   string `json:"password"`
	Locale     string `json:"locale"`
	// EmailRepeated is the honeypot field; real clients never fill it.
	EmailRepeated  string         `json:"email_repeated"`
	InvitationCode string         `json:"invitation_code"`
	CommunityID    string         `json:"community_id"`
	Captcha        captchaPayload `json:"captcha"`
	RDFProfileURL  string         `json:"rdf_profile_url"`
}

type locationPayload struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type updateRequest struct {
	GivenName              *string           `json:"given_name"`
	FamilyName             *string           `json:"family_name"`
	Email                  *string           `json:"email"`
	Locale                 *string           `json:"locale"`
	Password               *string           `json:"password"`
	Location               *locationPayload  `json:"location"`
	RequestNewConfirmation bool              `json:"request_new_email_confirmation"`
	PayoutDetails          map[string]string `json:"payout_details"`
}

func (s *Server) createPerson(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.admit(c, req)
}

// createPersonFromSocial prefills missing signup fields from an external FOAF
// profile before running the ordinary admission flow.
func (s *Server) createPersonFromSocial(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.RDFProfileURL) == "" {
		AbortWithError(c, validate.New("rdf_profile_url", "blank", "profile url is required"))
		return
	}

	fields, err := s.importer.ImportFromURL(c.Request.Context(), req.RDFProfileURL)
	if err != nil {
		var fetchErr *rdfimport.FetchError
		var parseErr *rdfimport.ParseError
		if !errors.As(err, &fetchErr) && !errors.As(err, &parseErr) {
			AbortWithError(c, err)
			return
		}
		// An unreadable profile degrades to a plain signup.
		s.log.Warn("profile import failed", zap.Error(err))
	}
	if req.Username == "" {
		req.Username = fields.Username
	}
	if req.Email == "" {
		req.Email = fields.Email
	}
	if req.GivenName == "" {
		req.GivenName = fields.GivenName
	}
	if req.FamilyName == "" {
		req.FamilyName = fields.FamilyName
	}
	s.admit(c, req)
}

func (s *Server) admit(c *gin.Context, req signupRequest) {
	ctx := c.Request.Context()

	if ve := validateSignup(req); !ve.Empty() {
		AbortWithError(c, ve)
		return
	}

	communityCtx, err := s.communityContext(c, req.CommunityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sid := s.sessions.SessionID(c)
	state, err := s.sessionStore.Get(ctx, sid)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		AbortWithError(c, err)
		return
	}

	invitationCode := req.InvitationCode
	if invitationCode == "" {
		invitationCode = state.InvitationCode
	}

	credential, err := password.Hash(req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attempt := &admissiondomain.Attempt{
		Community: communityCtx,
		Person: admissiondomain.PersonAttributes{
			Username:           req.Username,
			Email:              req.Email,
			GivenName:          req.GivenName,
			FamilyName:         req.FamilyName,
			PasswordCredential: credential,
		},
		Honeypot:       req.EmailRepeated,
		InvitationCode: invitationCode,
		CaptchaProof:   captcha.Proof{Challenge: req.Captcha.Challenge, Response: req.Captcha.Response},
		RemoteIP:       c.ClientIP(),
		Host:           c.Request.Host,
		Locale:         req.Locale,
		Session:        &state,
	}

	decision, err := s.policy.Evaluate(ctx, attempt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !decision.Accepted {
		s.persistSession(c, sid, state)
		s.metrics.SignupOutcomes.WithLabelValues(string(decision.Reason)).Inc()
		AbortWithError(c, &PolicyRejectionError{Reason: decision.Reason})
		return
	}

	result, err := s.factory.Admit(ctx, attempt, decision)
	if err != nil {
		s.persistSession(c, sid, state)
		AbortWithError(c, err)
		return
	}
	s.persistSession(c, sid, state)
	s.metrics.SignupOutcomes.WithLabelValues("accepted").Inc()

	c.JSON(http.StatusCreated, gin.H{
		"person":   result.Person,
		"redirect": result.Redirect,
	})
}

func validateSignup(req signupRequest) *validate.ValidationError {
	ve := &validate.ValidationError{}
	if strings.TrimSpace(req.Username) == "" {
		ve.Add("username", "blank", "username is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		ve.Add("email", "blank", "email is required")
	} else if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		ve.Add("email", "invalid", "email address is not valid")
	}
	if req.Password == "" {
		ve.Add("password", "blank", "password is required")
	}
	return ve
}

func (s *Server) updatePerson(c *gin.Context) {
	personID, ok := s.authorizedPersonID(c)
	if !ok {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	communityCtx, err := s.communityContext(c, c.Query("community_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	changes := profile.Changes{
		GivenName:              req.GivenName,
		FamilyName:             req.FamilyName,
		Email:                  req.Email,
		Locale:                 req.Locale,
		RequestNewConfirmation: req.RequestNewConfirmation,
		PayoutFields:           req.PayoutDetails,
	}
	if req.Password != nil {
		credential, err := password.Hash(*req.Password)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		changes.PasswordCredential = &credential
	}
	if req.Location != nil {
		changes.Location = &profile.LocationChange{
			Address:   req.Location.Address,
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
		}
	}

	result, err := s.profileSvc.Update(c.Request.Context(), personID, changes, communityCtx, c.Request.Host)
	if err != nil {
		s.metrics.ProfileUpdates.WithLabelValues("rejected").Inc()
		AbortWithError(c, err)
		return
	}
	s.metrics.ProfileUpdates.WithLabelValues("updated").Inc()

	if result.PasswordChanged {
		// Every session was revoked on password change; re-establish this one.
		if err := s.credentials.SignIn(c.Request.Context(), personID); err != nil {
			s.log.Warn("failed to re-establish session", zap.Error(err))
		}
	}

	notice := "profile_updated"
	if result.ConfirmationSent {
		notice = "confirmation_instructions_sent"
	}
	c.JSON(http.StatusOK, gin.H{
		"person": result.Person,
		"notice": notice,
	})
}

func (s *Server) deletePerson(c *gin.Context) {
	personID, ok := s.authorizedPersonID(c)
	if !ok {
		return
	}

	if err := s.accounts.Delete(c.Request.Context(), personID); err != nil {
		AbortWithError(c, err)
		return
	}

	sid := s.sessions.SessionID(c)
	if err := s.sessionStore.Delete(c.Request.Context(), sid); err != nil {
		s.log.Warn("failed to drop session state", zap.Error(err))
	}
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) activatePerson(c *gin.Context) {
	s.setActive(c, true)
}

func (s *Server) deactivatePerson(c *gin.Context) {
	s.setActive(c, false)
}

func (s *Server) setActive(c *gin.Context, active bool) {
	personID, ok := s.authorizedPersonID(c)
	if !ok {
		return
	}

	person, err := s.accounts.SetActive(c.Request.Context(), personID, active)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"person": person})
}

func (s *Server) checkUsername(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		AbortWithError(c, validate.New("username", "blank", "username is required"))
		return
	}

	available, err := s.availability.UsernameAvailable(c.Request.Context(), username)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

// checkEmail reports availability for the signed-in person, so keeping one's
// current address always reads available.
func (s *Server) checkEmail(c *gin.Context) {
	address := strings.TrimSpace(c.Query("email"))
	if address == "" {
		AbortWithError(c, validate.New("email", "blank", "email is required"))
		return
	}
	if _, err := mail.ParseAddress(address); err != nil {
		c.JSON(http.StatusOK, gin.H{"available": false, "valid": false})
		return
	}

	owner := s.sessionPersonID(c)
	available, err := s.availability.EmailAvailableFor(c.Request.Context(), owner, address)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available, "valid": true})
}

// checkEmailForNewTribe additionally rejects addresses claimed by the
// allow-list of an existing restricted community, but only when the new
// tribe's category is itself domain-bound.
func (s *Server) checkEmailForNewTribe(c *gin.Context) {
	address := strings.TrimSpace(c.Query("email"))
	if address == "" {
		AbortWithError(c, validate.New("email", "blank", "email is required"))
		return
	}

	ctx := c.Request.Context()
	available, err := s.availability.EmailAvailableFor(ctx, s.sessionPersonID(c), address)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	names := make([]string, 0)
	if communitydomain.CategoryEmailRestricted(c.Query("community_category")) {
		restricting, err := s.availability.CommunitiesRestrictingEmail(ctx, address)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		for _, comm := range restricting {
			names = append(names, comm.Name)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"available":               available && len(names) == 0,
		"restricting_communities": names,
	})
}

func (s *Server) checkInvitationCode(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		AbortWithError(c, validate.New("code", "blank", "invitation code is required"))
		return
	}

	communityCtx, err := s.communityContext(c, c.Query("community_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	usable, err := s.invites.CodeUsable(c.Request.Context(), code, communityCtx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": usable})
}

// checkCaptcha verifies a proof ahead of submission and caches the accepted
// token on the session so the signup itself does not re-verify.
func (s *Server) checkCaptcha(c *gin.Context) {
	var req captchaPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	proof := captcha.Proof{Challenge: req.Challenge, Response: req.Response}
	ok, err := s.captcha.Verify(ctx, c.ClientIP(), proof)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if ok {
		sid := s.sessions.SessionID(c)
		state, err := s.sessionStore.Get(ctx, sid)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			AbortWithError(c, err)
			return
		}
		state.LastAcceptedCaptcha = proof.Token()
		s.persistSession(c, sid, state)
	}
	c.JSON(http.StatusOK, gin.H{"valid": ok})
}

// prefill fetches signup form fields from an external profile document. An
// unreadable document yields an empty prefill, not an error.
func (s *Server) prefill(c *gin.Context) {
	url := strings.TrimSpace(c.Query("rdf_profile_url"))
	if url == "" {
		AbortWithError(c, validate.New("rdf_profile_url", "blank", "profile url is required"))
		return
	}

	fields, err := s.importer.ImportFromURL(c.Request.Context(), url)
	if err != nil {
		s.log.Warn("profile prefill failed", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusOK, rdfimport.ProfileFields{})
		return
	}
	c.JSON(http.StatusOK, fields)
}

// communityContext resolves the tenant scope of the request. An empty id
// means the brand-new tenant path.
func (s *Server) communityContext(c *gin.Context, explicit string) (*communitydomain.Community, error) {
	raw := strings.TrimSpace(explicit)
	if raw == "" {
		raw = strings.TrimSpace(c.GetHeader("X-Community-ID"))
	}
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, validate.New("community_id", "invalid", "community id is not valid")
	}
	return s.communities.FindByID(c.Request.Context(), s.db, snowflake.ID(id))
}

// authorizedPersonID requires the path id to match the signed-in person.
func (s *Server) authorizedPersonID(c *gin.Context) (snowflake.ID, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		AbortWithError(c, validate.New("id", "invalid", "person id is not valid"))
		return 0, false
	}

	current := s.sessionPersonID(c)
	if current == 0 {
		AbortWithError(c, ErrUnauthorized)
		return 0, false
	}
	if current != snowflake.ID(id) {
		AbortWithError(c, ErrForbidden)
		return 0, false
	}
	return snowflake.ID(id), true
}

func (s *Server) sessionPersonID(c *gin.Context) snowflake.ID {
	sid := s.sessions.SessionID(c)
	state, err := s.sessionStore.Get(c.Request.Context(), sid)
	if err != nil {
		return 0
	}
	return state.PersonID
}

func (s *Server) persistSession(c *gin.Context, sid string, state session.State) {
	if err := s.sessionStore.Put(c.Request.Context(), sid, state); err != nil {
		s.log.Warn("failed to persist session state", zap.Error(err))
	}
}
