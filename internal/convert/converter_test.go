package convert

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/matsen/doibib/internal/crossref"
	"github.com/matsen/doibib/internal/export"
	"github.com/matsen/doibib/internal/reference"
)

// stubFetcher serves canned records and remembers the DOIs it was asked for.
type stubFetcher struct {
	records map[string]string
	calls   []string
	events  *[]string
}

func (s *stubFetcher) Fetch(_ context.Context, doi string) (crossref.Record, bool) {
	s.calls = append(s.calls, doi)
	if s.events != nil {
		*s.events = append(*s.events, "fetch:"+doi)
	}
	raw, ok := s.records[doi]
	if !ok {
		return crossref.Record{}, false
	}
	return crossref.ParseRecord(raw), true
}

func recordFor(title string) string {
	return `{"title":["` + title + `"],"type":"journal-article"}`
}

// recordingPauser records pauses into events without sleeping.
func recordingPauser(events *[]string) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*events = append(*events, "pause:"+d.String())
		return nil
	}
}

func keysOf(results []Result) []string {
	var keys []string
	for _, r := range results {
		if r.Status == StatusOK {
			keys = append(keys, r.Key)
		}
	}
	return keys
}

func TestEntryKey(t *testing.T) {
	tests := []struct {
		prefix string
		index  int
		want   string
	}{
		{"ref", 0, "ref001"},
		{"ref", 41, "ref042"},
		{"ref", 122, "ref123"},
		{"ref", 999, "ref1000"},
		{"paper", 4, "paper005"},
		{"", 0, "001"},
	}

	for _, tt := range tests {
		if got := EntryKey(tt.prefix, tt.index); got != tt.want {
			t.Errorf("EntryKey(%q, %d) = %q, want %q", tt.prefix, tt.index, got, tt.want)
		}
	}
}

func TestCreateEntries_EndToEnd(t *testing.T) {
	f := &stubFetcher{records: map[string]string{
		"10.1000/xyz": `{"title":["T"],"author":[{"family":"Doe","given":"Jane"}],"container-title":["J"],"published-print":{"date-parts":[[2020]]},"type":"journal-article"}`,
	}}
	var events []string
	c := New(f, WithPauser(recordingPauser(&events)))

	got := c.CreateEntries(context.Background(), []string{"10.1000/xyz"})

	want := "@article{ref001,\n" +
		"  title   = {T},\n" +
		"  author  = {Doe, Jane},\n" +
		"  journal = {J},\n" +
		"  year    = {2020}\n" +
		"}\n"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("CreateEntries() = %q, want [%q]", got, want)
	}
	if len(events) != 0 {
		t.Errorf("pauses = %v, want none after the only DOI", events)
	}
}

func TestCreateEntries_EmptyInput(t *testing.T) {
	f := &stubFetcher{}
	c := New(f)

	got := c.CreateEntries(context.Background(), nil)
	if got == nil || len(got) != 0 {
		t.Errorf("CreateEntries(nil) = %#v, want empty non-nil slice", got)
	}
	if len(f.calls) != 0 {
		t.Errorf("fetch calls = %v, want none", f.calls)
	}
}

func TestRun_SkippedDOIsKeepNumbering(t *testing.T) {
	f := &stubFetcher{records: map[string]string{
		"10.1/a": recordFor("A"),
		"10.1/b": recordFor("B"),
		"10.1/d": recordFor("D"),
		"10.1/e": recordFor("E"),
	}}
	c := New(f, WithKeyPrefix("bib"), WithPauser(recordingPauser(new([]string))))

	results := c.Run(context.Background(), []string{"10.1/a", "10.1/b", "", "10.1/d", "10.1/e"})

	got := keysOf(results)
	want := []string{"bib001", "bib002", "bib004", "bib005"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if results[2].Status != StatusEmpty {
		t.Errorf("results[2].Status = %q, want empty", results[2].Status)
	}
	if len(f.calls) != 4 {
		t.Errorf("fetch calls = %v, want 4 (empty DOI not fetched)", f.calls)
	}
}

func TestRun_FetchFailureSkips(t *testing.T) {
	f := &stubFetcher{records: map[string]string{
		"10.1/a":     recordFor("A"),
		"10.1/empty": `{}`,
		"10.1/c":     recordFor("C"),
	}}
	var logged []string
	log := funcr.New(func(_, args string) { logged = append(logged, args) }, funcr.Options{})
	c := New(f, WithLogger(log), WithPauser(recordingPauser(new([]string))))

	results := c.Run(context.Background(), []string{"10.1/a", "10.1/missing", "10.1/empty", "10.1/c"})

	statuses := []Status{StatusOK, StatusNotFound, StatusNotFound, StatusOK}
	for i, want := range statuses {
		if results[i].Status != want {
			t.Errorf("results[%d].Status = %q, want %q", i, results[i].Status, want)
		}
	}
	if got := keysOf(results); strings.Join(got, ",") != "ref001,ref004" {
		t.Errorf("keys = %v, want [ref001 ref004]", got)
	}

	var warned int
	for _, line := range logged {
		if strings.Contains(line, `"reason"="not_found"`) {
			warned++
		}
	}
	if warned != 2 {
		t.Errorf("not_found log lines = %d, want 2; logs: %v", warned, logged)
	}
}

func TestRun_WhitespaceDOIIsSkipped(t *testing.T) {
	f := &stubFetcher{}
	c := New(f)

	results := c.Run(context.Background(), []string{"   ", "\t\n"})
	for i, r := range results {
		if r.Status != StatusEmpty {
			t.Errorf("results[%d].Status = %q, want empty", i, r.Status)
		}
	}
	if len(f.calls) != 0 {
		t.Errorf("fetch calls = %v, want none", f.calls)
	}
}

func TestRun_PausesBetweenProcessedDOIsOnly(t *testing.T) {
	var events []string
	f := &stubFetcher{
		records: map[string]string{
			"10.1/a": recordFor("A"),
			"10.1/c": recordFor("C"),
		},
		events: &events,
	}
	c := New(f, WithDelay(250*time.Millisecond), WithPauser(recordingPauser(&events)))

	c.Run(context.Background(), []string{"10.1/a", "", "10.1/missing", "10.1/c"})

	want := []string{
		"fetch:10.1/a",
		"pause:250ms",
		"fetch:10.1/missing",
		"fetch:10.1/c",
	}
	if strings.Join(events, " ") != strings.Join(want, " ") {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRun_NoPauseAfterLastDOI(t *testing.T) {
	tests := []struct {
		name string
		dois []string
		want int
	}{
		{"last succeeds", []string{"10.1/a", "10.1/b"}, 1},
		{"last fails", []string{"10.1/a", "10.1/missing"}, 1},
		{"last empty", []string{"10.1/a", ""}, 1},
		{"single", []string{"10.1/a"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []string
			f := &stubFetcher{records: map[string]string{
				"10.1/a": recordFor("A"),
				"10.1/b": recordFor("B"),
			}}
			c := New(f, WithPauser(recordingPauser(&events)))
			c.Run(context.Background(), tt.dois)

			if len(events) != tt.want {
				t.Errorf("pauses = %d, want %d", len(events), tt.want)
			}
			if len(events) > 0 && events[len(events)-1] != "pause:1s" {
				t.Errorf("pause = %q, want default 1s delay", events[len(events)-1])
			}
		})
	}
}

func TestRun_SkipDOI(t *testing.T) {
	f := &stubFetcher{records: map[string]string{
		"10.1/a": recordFor("A"),
		"10.1/b": recordFor("B"),
	}}
	known := map[string]bool{"10.1/a": true}
	c := New(f,
		WithSkipDOI(func(doi string) bool { return known[doi] }),
		WithPauser(recordingPauser(new([]string))),
	)

	results := c.Run(context.Background(), []string{"10.1/a", "10.1/b"})

	if results[0].Status != StatusDuplicate {
		t.Errorf("results[0].Status = %q, want duplicate", results[0].Status)
	}
	if results[1].Key != "ref002" {
		t.Errorf("results[1].Key = %q, want ref002", results[1].Key)
	}
	if len(f.calls) != 1 || f.calls[0] != "10.1/b" {
		t.Errorf("fetch calls = %v, want only 10.1/b", f.calls)
	}
}

func TestRun_CancelledDuringPause(t *testing.T) {
	f := &stubFetcher{records: map[string]string{
		"10.1/a": recordFor("A"),
		"10.1/b": recordFor("B"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	c := New(f, WithPauser(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	results := c.Run(ctx, []string{"10.1/a", "10.1/b"})

	if len(results) != 1 || results[0].Status != StatusOK {
		t.Errorf("results = %+v, want only the first DOI", results)
	}
	if len(f.calls) != 1 {
		t.Errorf("fetch calls = %v, want 1", f.calls)
	}
}

func TestSleep(t *testing.T) {
	if err := sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleep() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleep(ctx, time.Hour); err == nil {
		t.Error("sleep() on cancelled context should return an error")
	}
	if time.Since(start) > time.Second {
		t.Error("sleep() did not return promptly on cancellation")
	}
}

func TestKeyOffset(t *testing.T) {
	tests := []struct {
		name  string
		taken []string
		n     int
		want  int
	}{
		{"nothing taken", nil, 3, 0},
		{"first key taken", []string{"ref001"}, 2, 1},
		{"run of keys taken", []string{"ref001", "ref002", "ref003"}, 2, 3},
		{"gap too small", []string{"ref001", "ref003"}, 2, 3},
		{"gap large enough", []string{"ref001", "ref004"}, 2, 1},
		{"other prefix ignored", []string{"paper001"}, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := make(map[string]bool)
			for _, k := range tt.taken {
				taken[k] = true
			}
			c := New(&stubFetcher{}, WithKeyTaken(func(k string) bool { return taken[k] }))
			if got := c.keyOffset(tt.n); got != tt.want {
				t.Errorf("keyOffset(%d) = %d, want %d", tt.n, got, tt.want)
			}
		})
	}
}

func TestRun_AppendToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")

	existing := reference.NewEntry("ref001")
	existing.Set(reference.FieldTitle, "Already there")
	existing.Set(reference.FieldDOI, "10.1/a")
	if err := export.WriteBibFile(path, []string{export.ToBibTeX(existing)}); err != nil {
		t.Fatalf("WriteBibFile() error = %v", err)
	}

	idx, err := export.ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}

	f := &stubFetcher{records: map[string]string{
		"10.1/a": recordFor("Already there"),
		"10.1/b": recordFor("New"),
	}}
	c := New(f,
		WithDelay(0),
		WithSkipDOI(idx.HasDOI),
		WithKeyTaken(idx.HasKey),
	)

	results := c.Run(context.Background(), []string{"https://doi.org/10.1/a", "10.1/b"})

	if results[0].Status != StatusDuplicate {
		t.Errorf("results[0].Status = %q, want %q", results[0].Status, StatusDuplicate)
	}
	if want := []string{"10.1/b"}; !reflect.DeepEqual(f.calls, want) {
		t.Errorf("fetched %v, want %v", f.calls, want)
	}
	if results[1].Key != "ref003" {
		t.Errorf("results[1].Key = %q, want ref003", results[1].Key)
	}

	if err := export.AppendToBibFile(path, []string{results[1].BibTeX}); err != nil {
		t.Fatalf("AppendToBibFile() error = %v", err)
	}
	idx, err = export.ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if idx.Len() != 2 || !idx.HasKey("ref001") || !idx.HasKey("ref003") {
		t.Errorf("Keys after append = %v, want ref001 and ref003", idx.Keys)
	}
}
