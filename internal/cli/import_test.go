package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExport = `Participant First Name,Participant Name,Participant E-Mail,Team Name,Contestsite,Affiliation Name,Contestsiteorganizer
Alice,Ant,alice@example.org,Ants,Lab1,Example University,Carol Coach
Bob,Beetle,bob@example.org,Ants,Lab1,Example University,Carol Coach
`

// directoryStub serves the handful of icpc.global endpoints the pipeline
// touches and records every mutating request.
type directoryStub struct {
	mu    sync.Mutex
	posts []string
}

func (d *directoryStub) recordedPosts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.posts...)
}

func (d *directoryStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /contest/tree/year/2026", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":5,"label":"Example Regional 2026"}]`)
	})
	mux.HandleFunc("GET /contest/5/sites", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":10,"name":"Lab1"}]`)
	})
	mux.HandleFunc("GET /person/suggest", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "Carol Coach":
			fmt.Fprint(w, `[{"id":7,"firstName":"Carol","lastName":"Coach","username":"carol@example.org"}]`)
		case "alice@example.org":
			fmt.Fprint(w, `[{"id":31,"firstName":"Alice","lastName":"Ant","username":"alice@example.org"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	mux.HandleFunc("GET /common/institutionunit/suggest", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "Example University":
			fmt.Fprint(w, `[{"id":55,"name":"Example University"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	mux.HandleFunc("POST /team/register/customcoach", func(w http.ResponseWriter, r *http.Request) {
		d.record(r)
		fmt.Fprint(w, `{"teamId":101}`)
	})
	mux.HandleFunc("POST /person/registration/registerviasuggest", func(w http.ResponseWriter, r *http.Request) {
		d.record(r)
		fmt.Fprint(w, `{"id":88,"firstName":"Bob","lastName":"Beetle","username":"bob@example.org"}`)
	})
	mux.HandleFunc("POST /team/members/team/101/add", func(w http.ResponseWriter, r *http.Request) {
		d.record(r)
	})
	return mux
}

func (d *directoryStub) record(r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.posts = append(d.posts, r.URL.Path)
}

// startTestBackend starts the directory stub plus a Cognito stand-in and
// writes a config file pointing at both. It returns the config path and
// the stub for request assertions.
func startTestBackend(t *testing.T) (string, *directoryStub) {
	t.Helper()

	stub := &directoryStub{}
	api := httptest.NewServer(stub.handler())
	t.Cleanup(api.Close)

	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"AuthenticationResult":{"IdToken":"test-token"}}`)
	}))
	t.Cleanup(auth.Close)

	cfg := fmt.Sprintf(`username: importer@example.org
password: hunter2
base_url: %s/
auth_endpoint: %s/
auth_client_id: test-client
page_size: 2
`, api.URL, auth.URL)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0600))

	return cfgPath, stub
}

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportEndToEnd(t *testing.T) {
	cfgPath, stub := startTestBackend(t)
	csvPath := writeExport(t, testExport)

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"import", "--config", cfgPath, "--year", "2026", "--yes", csvPath})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "authenticated!")
	assert.Contains(t, out, "Using contest Example Regional 2026 (5)")
	assert.Contains(t, out, "Ants created (101)")
	assert.Contains(t, out, "Alice Ant added")
	assert.Contains(t, out, "Bob Beetle added")
	assert.Contains(t, out, "1 teams created, 0 skipped; 2 contestants added, 0 skipped")

	// Bob has no directory entry, so he is registered before being added.
	assert.Equal(t, []string{
		"/team/register/customcoach",
		"/team/members/team/101/add",
		"/person/registration/registerviasuggest",
		"/team/members/team/101/add",
	}, stub.recordedPosts())
}

func TestImportTranscript(t *testing.T) {
	cfgPath, _ := startTestBackend(t)
	csvPath := writeExport(t, testExport)

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"import", "--config", cfgPath, "--year", "2026", "--yes", csvPath})

	require.NoError(t, cmd.Execute())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "import_transcript", buf.Bytes())
}

func TestImportUnresolvedTeamSkipped(t *testing.T) {
	cfgPath, stub := startTestBackend(t)
	// The Wasps' affiliation is unknown to the directory, so the team is
	// skipped while the Ants import normally.
	csvPath := writeExport(t, testExport+
		"Walt,Wasp,walt@example.org,Wasps,Lab1,Nowhere College,Carol Coach\n")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"import", "--config", cfgPath, "--year", "2026", "--yes", csvPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := buf.String()
	assert.Contains(t, out, "Ants created (101)")
	assert.Contains(t, out, "Wasps incomplete informations: SKIPPING")
	assert.Contains(t, out, "1 teams created, 1 skipped; 2 contestants added, 0 skipped")
	// The skipped team never reaches the registration endpoint, so the
	// mutation count matches a clean single-team import.
	assert.Len(t, stub.recordedPosts(), 4)
}

func TestImportBadExport(t *testing.T) {
	cfgPath, stub := startTestBackend(t)
	csvPath := writeExport(t, "Team Name,Contestsite\nAnts,Lab1\n")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"import", "--config", cfgPath, "--year", "2026", "--yes", csvPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, stub.recordedPosts())
}

func TestImportDeclinedAborts(t *testing.T) {
	cfgPath, stub := startTestBackend(t)
	csvPath := writeExport(t, testExport)

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	// Continue with affiliations? yes; Continue with import? no.
	cmd.SetIn(strings.NewReader("y\nn\n"))
	cmd.SetArgs([]string{"import", "--config", cfgPath, "--year", "2026", csvPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "aborted")
	assert.Empty(t, stub.recordedPosts())
}

func TestImportWithJournal(t *testing.T) {
	cfgPath, _ := startTestBackend(t)
	csvPath := writeExport(t, testExport)
	journalPath := filepath.Join(t.TempDir(), "runs.db")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"import", "--config", cfgPath, "--year", "2026", "--yes",
		"--journal", journalPath, csvPath})

	require.NoError(t, cmd.Execute())

	// The runs command reads the journal back.
	buf.Reset()
	runsCmd := NewRootCommand()
	runsCmd.SetOut(buf)
	runsCmd.SetErr(buf)
	runsCmd.SetArgs([]string{"runs", "--journal", journalPath})

	require.NoError(t, runsCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "done")
	assert.NotContains(t, out, "cancelled")
}

func TestResolveMakesNoMutations(t *testing.T) {
	cfgPath, stub := startTestBackend(t)
	csvPath := writeExport(t, testExport)

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"resolve", "--config", cfgPath, "--year", "2026", "--yes", csvPath})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "! Found following sites with teams:")
	assert.Contains(t, out, "Carol Coach")
	assert.Contains(t, out, "! Found following affiliations with teams:")
	assert.Contains(t, out, "Example University")
	assert.NotContains(t, out, "created")
	assert.Empty(t, stub.recordedPosts())
}

func TestSeasonYear(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), "2026"},
		{time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC), "2027"},
		{time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC), "2027"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, seasonYear(tt.now), "now=%s", tt.now)
	}
}
