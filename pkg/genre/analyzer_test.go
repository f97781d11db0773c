package genre

import (
	"maps"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"default", Config{}, DefaultMaxWorkers},
		{"negative", Config{MaxWorkers: -3}, DefaultMaxWorkers},
		{"custom", Config{MaxWorkers: 8}, 8},
		{"single", Config{MaxWorkers: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.cfg)
			if a.MaxWorkers() != tt.want {
				t.Errorf("MaxWorkers() = %d, want %d", a.MaxWorkers(), tt.want)
			}
		})
	}
}

// checkInvariants verifies the properties every result must satisfy.
func checkInvariants(t *testing.T, input []string, result *types.AnalysisResult) {
	t.Helper()

	if result.ProcessingTime < 0 {
		t.Errorf("negative processing time: %v", result.ProcessingTime)
	}
	if got := result.GenreCounts.Total(); got != len(input) {
		t.Errorf("sum of counts = %d, want %d", got, len(input))
	}
	if len(result.TopGenres) != len(result.GenreCounts) {
		t.Fatalf("ranking has %d entries, tally has %d", len(result.TopGenres), len(result.GenreCounts))
	}

	seen := make(map[string]bool)
	for _, label := range result.TopGenres {
		if seen[label] {
			t.Errorf("label %q ranked twice", label)
		}
		seen[label] = true
		if _, ok := result.GenreCounts[label]; !ok {
			t.Errorf("ranked label %q missing from tally", label)
		}
	}

	for i := 1; i < len(result.TopGenres); i++ {
		a, b := result.TopGenres[i-1], result.TopGenres[i]
		if result.GenreCounts[a] < result.GenreCounts[b] {
			t.Errorf("ranking out of order at %d: %q(%d) before %q(%d)",
				i, a, result.GenreCounts[a], b, result.GenreCounts[b])
		}
	}
}

func TestAnalyze_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		input       []string
		wantCounts  types.Tally
		wantRanking types.Ranking
	}{
		{
			name:        "distinct counts",
			input:       []string{"rock", "jazz", "rock", "pop", "jazz", "rock"},
			wantCounts:  types.Tally{"rock": 3, "jazz": 2, "pop": 1},
			wantRanking: types.Ranking{"rock", "jazz", "pop"},
		},
		{
			name:        "single element",
			input:       []string{"blues"},
			wantCounts:  types.Tally{"blues": 1},
			wantRanking: types.Ranking{"blues"},
		},
		{
			name:        "case and whitespace are significant",
			input:       []string{"Pop", "pop", "pop ", "pop"},
			wantCounts:  types.Tally{"pop": 2, "Pop": 1, "pop ": 1},
			wantRanking: types.Ranking{"pop", "Pop", "pop "},
		},
		{
			name:        "empty label counts",
			input:       []string{"", "", "rock"},
			wantCounts:  types.Tally{"": 2, "rock": 1},
			wantRanking: types.Ranking{"", "rock"},
		},
	}

	a := New(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Analyze(tt.input)
			checkInvariants(t, tt.input, result)

			if !maps.Equal(result.GenreCounts, tt.wantCounts) {
				t.Errorf("GenreCounts = %v, want %v", result.GenreCounts, tt.wantCounts)
			}
			if !slices.Equal(result.TopGenres, tt.wantRanking) {
				t.Errorf("TopGenres = %v, want %v", result.TopGenres, tt.wantRanking)
			}
		})
	}
}

func TestAnalyze_Tie(t *testing.T) {
	input := []string{"pop", "pop", "rock", "rock"}
	result := New(Config{}).Analyze(input)
	checkInvariants(t, input, result)

	want := types.Tally{"pop": 2, "rock": 2}
	if !maps.Equal(result.GenreCounts, want) {
		t.Errorf("GenreCounts = %v, want %v", result.GenreCounts, want)
	}
	if !slices.Contains(result.TopGenres, "pop") || !slices.Contains(result.TopGenres, "rock") {
		t.Errorf("TopGenres = %v, want both pop and rock", result.TopGenres)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	for _, input := range [][]string{nil, {}} {
		result := New(Config{}).Analyze(input)
		if result == nil {
			t.Fatal("Analyze returned nil")
		}
		if result.GenreCounts == nil || len(result.GenreCounts) != 0 {
			t.Errorf("expected empty non-nil tally, got %#v", result.GenreCounts)
		}
		if result.TopGenres == nil || len(result.TopGenres) != 0 {
			t.Errorf("expected empty non-nil ranking, got %#v", result.TopGenres)
		}
		if result.Workers != 0 {
			t.Errorf("expected no workers, got %d", result.Workers)
		}
		if result.ProcessingTime < 0 {
			t.Errorf("negative processing time: %v", result.ProcessingTime)
		}
	}
}

func TestAnalyze_WorkerCount(t *testing.T) {
	tests := []struct {
		maxWorkers int
		n          int
		want       int
	}{
		{4, 1, 1},
		{4, 3, 3},
		{4, 4, 4},
		{4, 100, 4},
		{1, 100, 1},
		{16, 10, 10},
	}

	for _, tt := range tests {
		input := make([]string, tt.n)
		for i := range input {
			input[i] = "rock"
		}
		result := New(Config{MaxWorkers: tt.maxWorkers}).Analyze(input)
		if result.Workers != tt.want {
			t.Errorf("max=%d n=%d: workers = %d, want %d", tt.maxWorkers, tt.n, result.Workers, tt.want)
		}
		if result.GenreCounts["rock"] != tt.n {
			t.Errorf("max=%d n=%d: rock = %d", tt.maxWorkers, tt.n, result.GenreCounts["rock"])
		}
	}
}

func TestAnalyze_PermutationInvariant(t *testing.T) {
	alphabet := []string{"rock", "jazz", "pop", "blues", "soul", "funk"}
	rng := rand.New(rand.NewPCG(1, 2))

	input := make([]string, 997)
	for i := range input {
		input[i] = alphabet[rng.IntN(len(alphabet))]
	}

	a := New(Config{})
	want := a.Analyze(input)
	checkInvariants(t, input, want)

	for range 5 {
		shuffled := slices.Clone(input)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got := a.Analyze(shuffled)
		checkInvariants(t, shuffled, got)
		if !maps.Equal(got.GenreCounts, want.GenreCounts) {
			t.Errorf("tally changed after shuffle: %v vs %v", got.GenreCounts, want.GenreCounts)
		}
	}
}

func TestAnalyze_ConcurrentStress(t *testing.T) {
	alphabet := []string{"rock", "jazz", "pop", "blues", "soul"}
	input := make([]string, 10000)
	want := make(types.Tally)
	for i := range input {
		label := alphabet[(i*7+i/3)%len(alphabet)]
		input[i] = label
		want[label]++
	}

	a := New(Config{})
	for i := range 200 {
		result := a.Analyze(input)
		if !maps.Equal(result.GenreCounts, want) {
			t.Fatalf("run %d: GenreCounts = %v, want %v", i, result.GenreCounts, want)
		}
	}
}

func TestAnalyze_ConcurrentCallers(t *testing.T) {
	input := []string{"rock", "jazz", "rock", "pop", "jazz", "rock"}
	a := New(Config{MaxWorkers: 3})

	results := make(chan *types.AnalysisResult, 50)
	for range 50 {
		go func() {
			results <- a.Analyze(input)
		}()
	}

	want := types.Tally{"rock": 3, "jazz": 2, "pop": 1}
	for range 50 {
		result := <-results
		if !maps.Equal(result.GenreCounts, want) {
			t.Errorf("GenreCounts = %v, want %v", result.GenreCounts, want)
		}
	}
}

func TestAnalyzeRecords(t *testing.T) {
	records := []types.Record{
		{UserID: "U001", Artist: "Adele", Genre: "Soul"},
		{UserID: "U002", Artist: "Drake", Genre: "Hip-Hop"},
		{UserID: "U003", Artist: "Drake", Genre: "Hip-Hop"},
	}

	result := New(Config{}).AnalyzeRecords(records)
	want := types.Tally{"Hip-Hop": 2, "Soul": 1}
	if !maps.Equal(result.GenreCounts, want) {
		t.Errorf("GenreCounts = %v, want %v", result.GenreCounts, want)
	}
	if !slices.Equal(result.TopGenres, types.Ranking{"Hip-Hop", "Soul"}) {
		t.Errorf("TopGenres = %v", result.TopGenres)
	}
}

func TestLabels(t *testing.T) {
	records := []types.Record{{Genre: "b"}, {Genre: "a"}, {Genre: "b"}}
	got := Labels(records)
	if !slices.Equal(got, []string{"b", "a", "b"}) {
		t.Errorf("Labels() = %v", got)
	}
	if got := Labels(nil); len(got) != 0 {
		t.Errorf("Labels(nil) = %v, want empty", got)
	}
}
