package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/itsivali/virtual-butler/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-for-middleware")
	os.Exit(m.Run())
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	next, called := okHandler()
	req := httptest.NewRequest("GET", "/v1/chat/requests", nil)
	rec := httptest.NewRecorder()

	AuthMiddleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run without a token")
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	next, called := okHandler()
	req := httptest.NewRequest("GET", "/v1/chat/requests", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	AuthMiddleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run with an invalid token")
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	token, err := utils.GenerateToken("guest-42", "guest", "412", -time.Minute)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	next, called := okHandler()
	req := httptest.NewRequest("GET", "/v1/chat/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run with an expired token")
	}
}

func TestAuthMiddleware_ValidTokenPopulatesContext(t *testing.T) {
	token, err := utils.GenerateToken("guest-42", "guest", "412", time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	var gotClaims *utils.AuthClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = utils.ClaimsFromRequest(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/v1/chat/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotClaims == nil {
		t.Fatal("claims missing from context")
	}
	if gotClaims.Subject != "guest-42" || gotClaims.Role != "guest" || gotClaims.Room != "412" {
		t.Fatalf("unexpected claims: %+v", gotClaims)
	}
}

func TestRequireRole(t *testing.T) {
	staffToken, _ := utils.GenerateToken("alex", "staff", "", time.Hour)
	guestToken, _ := utils.GenerateToken("guest-42", "guest", "412", time.Hour)

	next, _ := okHandler()
	protected := AuthMiddleware(RequireRole("staff", "admin")(next))

	req := httptest.NewRequest("PATCH", "/v1/work-orders/x/status", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("staff should pass, got %d", rec.Code)
	}

	req = httptest.NewRequest("PATCH", "/v1/work-orders/x/status", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("guest should be forbidden, got %d", rec.Code)
	}
}
