package ingest_test

import (
	"testing"

	"festsync/internal/ingest"
)

func TestShouldStop(t *testing.T) {
	yes, no := true, false
	two, zero := 2, 0

	cases := []struct {
		name string
		in   ingest.StopInput
		want bool
	}{
		{"max pages reached", ingest.StopInput{CurrentPage: 5, ItemsCount: 10, HasNext: &yes, MaxPages: 5}, true},
		{"total pages reached", ingest.StopInput{CurrentPage: 2, ItemsCount: 10, HasNext: &yes, TotalPages: &two, MaxPages: 500}, true},
		{"total pages ahead defers to has next", ingest.StopInput{CurrentPage: 1, ItemsCount: 10, HasNext: &no, TotalPages: &two, MaxPages: 500}, true},
		{"zero total pages ignored", ingest.StopInput{CurrentPage: 3, ItemsCount: 10, HasNext: &yes, TotalPages: &zero, MaxPages: 500}, false},
		{"has next true continues", ingest.StopInput{CurrentPage: 1, ItemsCount: 0, HasNext: &yes, MaxPages: 500}, false},
		{"has next false stops", ingest.StopInput{CurrentPage: 1, ItemsCount: 10, HasNext: &no, MaxPages: 500}, true},
		{"no signals and items continue", ingest.StopInput{CurrentPage: 1, ItemsCount: 3, MaxPages: 500}, false},
		{"no signals and empty stop", ingest.StopInput{CurrentPage: 4, ItemsCount: 0, MaxPages: 500}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ingest.ShouldStop(tc.in); got != tc.want {
				t.Fatalf("ShouldStop(%+v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
