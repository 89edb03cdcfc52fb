package intent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/itsivali/virtual-butler/models"
)

func TestKeywordMatch_Routing(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"The AC is broken", models.DeptMaintenance},
		{"I need towels please", models.DeptHousekeeping},
		{"wifi not working", models.DeptIT},
		{"Can I get some fresh linen", models.DeptHousekeeping},
		{"the shower is leaking", models.DeptMaintenance},
		{"I'd like to order breakfast", models.DeptRoomService},
		{"my key card stopped at reception", models.DeptFrontDesk},
		{"I think my watch was stolen", models.DeptSecurity},
		{"can you book a taxi to the museum", models.DeptConcierge},
		{"hello there", models.DeptFrontDesk},
	}
	for _, tc := range cases {
		if got := KeywordMatch(tc.text); got != tc.want {
			t.Errorf("KeywordMatch(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestKeywordMatch_Deterministic(t *testing.T) {
	// mentions both housekeeping and room service terms; first rule wins
	text := "need towels and some food"
	first := KeywordMatch(text)
	if first != models.DeptHousekeeping {
		t.Fatalf("expected housekeeping for mixed message, got %s", first)
	}
	for i := 0; i < 20; i++ {
		if got := KeywordMatch(text); got != first {
			t.Fatalf("classification changed between calls: %s vs %s", first, got)
		}
	}
}

func TestClassify_OracleResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"topIntent":"RequestHousekeeping"}`))
	}))
	defer srv.Close()

	os.Setenv("CLASSIFIER_URL", srv.URL)
	defer os.Unsetenv("CLASSIFIER_URL")

	c := NewClassifier(NewOracleClient())
	got := c.Classify(context.Background(), "something the oracle understands", "conv-1", "guest-1")
	if got != models.DeptHousekeeping {
		t.Fatalf("expected oracle result housekeeping, got %s", got)
	}
}

func TestClassify_FallsBackOnOracleError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	os.Setenv("CLASSIFIER_URL", srv.URL)
	defer os.Unsetenv("CLASSIFIER_URL")

	c := NewClassifier(NewOracleClient())
	got := c.Classify(context.Background(), "the heater is broken", "", "")
	if got != models.DeptMaintenance {
		t.Fatalf("expected keyword fallback maintenance, got %s", got)
	}
}

func TestClassify_FallsBackOnUnknownIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"topIntent":"SomethingNovel"}`))
	}))
	defer srv.Close()

	os.Setenv("CLASSIFIER_URL", srv.URL)
	defer os.Unsetenv("CLASSIFIER_URL")

	c := NewClassifier(NewOracleClient())
	got := c.Classify(context.Background(), "wifi not working", "", "")
	if got != models.DeptIT {
		t.Fatalf("expected keyword fallback it, got %s", got)
	}
}
