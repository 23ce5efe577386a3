package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"principalcheck/internal/directory/static"
	jwttoken "principalcheck/internal/jwt_token"
	"principalcheck/internal/knownusers"
	storemocks "principalcheck/internal/knownusers/mocks"
	"principalcheck/internal/principal/models"
	"principalcheck/internal/symbol"
	"principalcheck/internal/validation"
	"principalcheck/pkg/platform/middleware/admin"
	"principalcheck/pkg/platform/sentinel"
	"principalcheck/pkg/testutil"
)

const adminToken = "admin-secret"

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	known  *knownusers.InMemoryStore
	token  string
	logger *slog.Logger
	dir    *static.Directory
	jwt    *jwttoken.JWTService
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	dir, err := static.New(static.File{
		Users:       []static.UserEntry{{ID: "alice", UniqueName: "alice@example.com"}},
		Groups:      []static.GroupEntry{{ID: "admins", DisplayName: "admins"}},
		Undecidable: []string{"legacy"},
		Failures:    []static.FailureEntry{{Name: "broken", Reason: "realm credentials expired"}},
	})
	s.Require().NoError(err)
	s.dir = dir

	s.known = knownusers.NewInMemoryStore()
	s.jwt = jwttoken.NewJWTService("test-key", "principalcheck")
	s.token, err = s.jwt.GenerateToken("tester", time.Hour)
	s.Require().NoError(err)

	s.router = s.newRouter(s.known)
}

func (s *HandlerSuite) newRouter(known knownusers.Store) chi.Router {
	table := symbol.Table{User: "[user]", Group: "[group]", Warning: "[warning]", Alert: "[alert]"}
	v := validation.New(table, known, s.logger, nil)
	r := chi.NewRouter()
	New(v, s.dir, known, s.logger, s.jwt, adminToken).Register(r)
	return r
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, path, nil), s.token)
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestCheckName() {
	s.Run("group hit", func() {
		rr := s.get("/validation/checkName?value=admins&type=group")
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("ok", rr.Header().Get(KindHeader))
		s.Equal("text/html; charset=utf-8", rr.Header().Get("Content-Type"))
		s.Equal(`<div tooltip="Group" class="mas-table__cell">[group]admins</div>`, rr.Body.String())
	})

	s.Run("either defaults and warns on a user hit", func() {
		rr := s.get("/validation/checkName?value=alice")
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("warning", rr.Header().Get(KindHeader))
		s.Contains(rr.Body.String(), "[warning][user]alice@example.com")
	})

	s.Run("unknown name", func() {
		rr := s.get("/validation/checkName?value=ghost&type=user")
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("error", rr.Header().Get(KindHeader))
		s.Contains(rr.Body.String(), `tooltip="User not found"`)
	})

	s.Run("auth error", func() {
		rr := s.get("/validation/checkName?value=broken&type=group")
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("error", rr.Header().Get(KindHeader))
		s.Contains(rr.Body.String(), "Failed to test the validity of the group name broken: realm credentials expired")
	})

	s.Run("blank value", func() {
		rr := s.get("/validation/checkName?value=")
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("ok", rr.Header().Get(KindHeader))
		s.Empty(rr.Body.String())
	})

	s.Run("bad type", func() {
		rr := s.get("/validation/checkName?value=x&type=robot")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("requires a token", func() {
		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/validation/checkName?value=x", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("rejects a bad token", func() {
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/validation/checkName?value=x", nil), "nope")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *HandlerSuite) TestCheckGroupAndUser() {
	s.Run("group ambiguous", func() {
		rr := s.get("/validation/checkGroup?value=admins&ambiguous=true")
		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[OutcomeResponse](s.T(), rr)
		s.Equal("warning", resp.Kind)
		s.False(resp.Inconclusive)
		s.Contains(resp.HTML, "[warning][group]admins")
	})

	s.Run("user not found is inconclusive", func() {
		rr := s.get("/validation/checkUser?value=ghost")
		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[OutcomeResponse](s.T(), rr)
		s.Equal("inconclusive", resp.Kind)
		s.True(resp.Inconclusive)
		s.Empty(resp.HTML)
	})

	s.Run("undecidable user", func() {
		rr := s.get("/validation/checkUser?value=legacy")
		resp := testutil.UnmarshalResponse[OutcomeResponse](s.T(), rr)
		s.Equal("ok", resp.Kind)
		s.Equal("legacy", resp.HTML)
	})

	s.Run("missing value", func() {
		rr := s.get("/validation/checkUser")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("bad ambiguous flag", func() {
		rr := s.get("/validation/checkGroup?value=admins&ambiguous=maybe")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestKnownUsersAdmin() {
	put := func(id string, body any, token string) *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/known-users/"+id, body)
		if token != "" {
			req.Header.Set(admin.TokenHeader, token)
		}
		return testutil.DoRequest(s.router, req)
	}

	s.Run("save updates the rendered label", func() {
		rr := put("alice", KnownUserRequest{FullName: "Alice Example"}, adminToken)
		s.Equal(http.StatusOK, rr.Code)
		saved := testutil.UnmarshalResponse[models.KnownUser](s.T(), rr)
		s.Equal("Alice Example", saved.FullName)

		check := s.get("/validation/checkName?value=alice&type=user")
		s.Equal(`<div tooltip="User alice" class="mas-table__cell">[user]Alice Example</div>`, check.Body.String())
	})

	s.Run("empty full name", func() {
		rr := put("alice", KnownUserRequest{}, adminToken)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("wrong admin token", func() {
		rr := put("alice", KnownUserRequest{FullName: "x"}, "guess")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("delete", func() {
		req := httptest.NewRequest(http.MethodDelete, "/admin/known-users/alice", nil)
		req.Header.Set(admin.TokenHeader, adminToken)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusNoContent, rr.Code)

		rr = testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestKnownUsersStoreUnavailable() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()
	store := storemocks.NewMockStore(ctrl)
	router := s.newRouter(store)

	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)
	store.EXPECT().Delete(gomock.Any(), "bob").DoAndReturn(func(context.Context, string) error {
		return sentinel.ErrUnavailable
	})

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/known-users/bob", KnownUserRequest{FullName: "Bob"})
	req.Header.Set(admin.TokenHeader, adminToken)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "service_unavailable")

	req = httptest.NewRequest(http.MethodDelete, "/admin/known-users/bob", nil)
	req.Header.Set(admin.TokenHeader, adminToken)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "service_unavailable")
}
