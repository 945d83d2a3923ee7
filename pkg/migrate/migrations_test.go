package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readEmbedded(t *testing.T) string {
	t.Helper()
	entries, err := fs.ReadDir(Embedded, embeddedDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var sb strings.Builder
	for _, e := range entries {
		b, err := fs.ReadFile(Embedded, embeddedDir+"/"+e.Name())
		require.NoError(t, err)
		sb.Write(b)
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestMigrationsDefineVerificationSchema(t *testing.T) {
	content := readEmbedded(t)

	for _, fragment := range []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE TABLE IF NOT EXISTS business_profiles",
		"CREATE TABLE IF NOT EXISTS contractor_onboarding_status",
		"CREATE TABLE IF NOT EXISTS verification_logs",
		"CREATE TABLE IF NOT EXISTS admin_notifications",
		"privacy_policies_version_key",
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
	} {
		require.Contains(t, content, fragment)
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateContent(t *testing.T) {
	cases := map[string]struct {
		body    string
		wantErr string
	}{
		"ok": {
			body: "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n",
		},
		"missing up": {
			body:    "-- +goose Down\n",
			wantErr: "missing",
		},
		"down first": {
			body:    "-- +goose Down\n-- +goose Up\n",
			wantErr: "Down before Up",
		},
		"unbalanced": {
			body:    "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
			wantErr: "StatementBegin",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := validateContent("x.sql", tc.body)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), body, 0o644))

	require.ErrorContains(t, ValidateDir(dir), "duplicate migration version")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Search Index!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260304050607_add_search_index.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "Add Search Index!", now)
	require.ErrorContains(t, err, "already exists")

	_, err = createSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}
