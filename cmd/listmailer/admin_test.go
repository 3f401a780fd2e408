package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qturkey/listmailer/internal/model"
)

func TestReadAddresses(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"# subscribers",
		"Alice@Example.com",
		"",
		"  bob@example.com  ",
		"alice@example.com",
		"not-an-address",
		"Carol <carol@example.com>",
	}, "\n")

	addresses, invalid, err := readAddresses(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, addresses)
	assert.Equal(t, []string{"not-an-address", "Carol <carol@example.com>"}, invalid)
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "User@Example.COM", want: "user@example.com", ok: true},
		{in: " user@example.com ", want: "user@example.com", ok: true},
		{in: "user", ok: false},
		{in: "Named <user@example.com>", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, ok := normalizeAddress(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteJobs(t *testing.T) {
	t.Parallel()

	scheduled := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	finished := scheduled.Add(2 * time.Minute)

	var buf bytes.Buffer
	err := writeJobs(&buf, []model.JobStats{
		{Job: model.Job{ID: 2, Status: model.JobPending, TemplateID: 7, AddressStartIndex: 600, ScheduledTo: scheduled.Add(24 * time.Hour)}},
		{Job: model.Job{ID: 1, Status: model.JobFinished, TemplateID: 7, ScheduledTo: scheduled, FinishedAt: &finished}, Sent: 598, Failed: 2},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")
	assert.Equal(t, []string{"2", "pending", "7", "600", "2026-03-02", "09:30", "-", "0", "0"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "finished", "7", "0", "2026-03-01", "09:30", "2026-03-01", "09:32", "598", "2"}, strings.Fields(lines[2]))
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"}, {"ingest"}, {"dispatch"}, {"migrate"},
		{"addresses", "import"}, {"addresses", "unsubscribe"}, {"jobs", "list"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
