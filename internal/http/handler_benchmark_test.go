package httpserver

import (
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkHandleRateItem(b *testing.B) {
	srv := buildTestServer(b)
	first := submit(b, srv, "seed", "Bench Venue", "Bench Dish", 4)
	path := "/items/" + first.Item.ID + "/ratings"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := do(b, srv, apiCall{method: http.MethodPost, path: path, body: `{"stars":4}`, rater: fmt.Sprintf("bench-%d", i)})
		if rec.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}

func BenchmarkHandleLeaderboard(b *testing.B) {
	srv := buildTestServer(b)
	for i := 0; i < 20; i++ {
		for j := 0; j < 12; j++ {
			submit(b, srv, fmt.Sprintf("rater-%d", j), "Bench Venue", fmt.Sprintf("Dish %d", i), 1+(i+j)%5)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := do(b, srv, apiCall{method: http.MethodGet, path: "/leaderboard?cohort=trusted"})
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
