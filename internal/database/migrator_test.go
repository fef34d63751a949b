package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements_SimpleStatements(t *testing.T) {
	content := `CREATE TABLE a (id INT);
CREATE TABLE b (id INT);

CREATE INDEX idx_b ON b (id);`

	stmts := splitStatements(content)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (id INT);", stmts[0])
	assert.Equal(t, "CREATE TABLE b (id INT);", stmts[1])
	assert.Equal(t, "CREATE INDEX idx_b ON b (id);", stmts[2])
}

func TestSplitStatements_MultiLineStatement(t *testing.T) {
	content := `CREATE TABLE upload_queue (
    id UUID PRIMARY KEY,
    status VARCHAR(32) NOT NULL
);
CREATE INDEX idx_status ON upload_queue (status);`

	stmts := splitStatements(content)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "status VARCHAR(32) NOT NULL")
	assert.Contains(t, stmts[1], "idx_status")
}

func TestSplitStatements_DollarQuotedBodyStaysIntact(t *testing.T) {
	content := `CREATE OR REPLACE FUNCTION touch_updated_at()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = CURRENT_TIMESTAMP;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;
CREATE TABLE after_fn (id INT);`

	stmts := splitStatements(content)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "RETURN NEW;")
	assert.Contains(t, stmts[0], "$$ LANGUAGE plpgsql;")
	assert.Equal(t, "CREATE TABLE after_fn (id INT);", stmts[1])
}

func TestSplitStatements_CommentOnlyLinesDoNotSplit(t *testing.T) {
	content := `-- queue table;
CREATE TABLE a (
    id INT -- primary key
);`

	stmts := splitStatements(content)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
}

func TestSplitStatements_TrailingStatementWithoutSemicolon(t *testing.T) {
	content := `CREATE TABLE a (id INT);
CREATE TABLE b (id INT)`

	stmts := splitStatements(content)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
}

func TestSplitStatements_EmptyAndCommentOnlyInput(t *testing.T) {
	assert.Empty(t, splitStatements(""))
	assert.Empty(t, splitStatements("-- nothing to do\n"))
	assert.Empty(t, splitStatements(";\n"))
}
