package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (x String); -- trailing

-- second
CREATE TABLE b (y String DEFAULT 'a;b', z String DEFAULT 'it''s')
ENGINE = MergeTree();
`
	stmts, err := Split(script)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x String)", stmts[0])
	assert.Contains(t, stmts[1], "'a;b'")
	assert.Contains(t, stmts[1], "'it''s'")
	assert.Contains(t, stmts[1], "ENGINE = MergeTree()")
}

func TestSplit_Unterminated(t *testing.T) {
	_, err := Split("SELECT 'oops;")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	pg, err := Load(Postgres)
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_token_lifecycle", pg[0].Version)
	require.Len(t, pg[0].Statements, 3)
	assert.Contains(t, pg[0].Statements[0], "token_lifecycle")

	ch, err := Load(ClickHouse)
	require.NoError(t, err)
	require.Len(t, ch, 1)
	require.Len(t, ch[0].Statements, 1)
	assert.Contains(t, ch[0].Statements[0], "price_snapshots")

	_, err = Load("mysql")
	assert.Error(t, err)
}
