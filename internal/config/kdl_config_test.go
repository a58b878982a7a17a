package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "__OBFID", cfg.Scan.MarkerField)
	assert.Equal(t, []string{"net/minecraft/"}, cfg.Scan.FirstParty)
	assert.Equal(t, `^access\$[\w$]+$`, cfg.Scan.AccessorPattern)
	assert.Equal(t, []string{"**/*.class"}, cfg.Scan.Include)
	assert.Equal(t, "first-match", cfg.Reconcile.Mode)
}

func TestParseKDL_ScanSection(t *testing.T) {
	kdlContent := `
scan {
    marker_field "__MARK"
    first_party "net/minecraft/" "com/mojang/"
    accessor_pattern "^access\\$\\d+$"
    include {
        "net/**/*.class"
        "com/**/*.class"
    }
    exclude "**/package-info.class"
}
reconcile {
    mode "strict"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, "__MARK", cfg.Scan.MarkerField)
	assert.Equal(t, []string{"net/minecraft/", "com/mojang/"}, cfg.Scan.FirstParty)
	assert.Equal(t, `^access\$\d+$`, cfg.Scan.AccessorPattern)
	assert.Equal(t, []string{"net/**/*.class", "com/**/*.class"}, cfg.Scan.Include)
	assert.Equal(t, []string{"**/package-info.class"}, cfg.Scan.Exclude)
	assert.Equal(t, "strict", cfg.Reconcile.Mode)
}

func TestParseKDL_Inputs(t *testing.T) {
	cfg, err := parseKDL(`
inputs {
    reference "build/deobf.jar"
    candidate "build/reobf.jar"
    fields "conf/fields.csv"
    methods "conf/methods.csv"
    exceptions "conf/joined.exc"
    srg "conf/joined.srg"
    output "build/reobf.srg"
    diff "build/reobf.patch"
}
`)
	require.NoError(t, err)
	assert.Equal(t, Inputs{
		Reference:  "build/deobf.jar",
		Candidate:  "build/reobf.jar",
		Fields:     "conf/fields.csv",
		Methods:    "conf/methods.csv",
		Exceptions: "conf/joined.exc",
		SRG:        "conf/joined.srg",
		Output:     "build/reobf.srg",
		Diff:       "build/reobf.patch",
	}, cfg.Inputs)
}

func TestParseKDL_Invalid(t *testing.T) {
	_, err := parseKDL(`scan { marker_field "unterminated }`)
	assert.Error(t, err)
}

func TestLoadKDL_Missing(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDL_RecordsSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, KDLFile)
	require.NoError(t, os.WriteFile(path, []byte(`reconcile { mode "strict"; }`), 0644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "strict", cfg.Reconcile.Mode)
}
