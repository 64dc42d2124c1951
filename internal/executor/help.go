package executor

import (
	"sort"
	"strings"
)

const generalHelp = `GSQL statements:
  CREATE TABLE [IF NOT EXISTS] t (col TYPE [constraints], ...)
  CREATE [UNIQUE] INDEX [IF NOT EXISTS] name ON t (col, ...)
  CREATE FUNCTION name(params) [RETURNS type] AS 'body'
  INSERT INTO t [(cols)] VALUES (...), (...)
  SELECT items FROM t [WHERE ...] [ORDER BY ...] [LIMIT n [OFFSET m]]
  UPDATE t SET col = value [, ...] [WHERE ...]
  DELETE FROM t [WHERE ...]
  DROP TABLE [IF EXISTS] t
  SHOW TABLES | SHOW FUNCTIONS | HELP [topic]
  BEGIN | COMMIT | ROLLBACK [TO name] | SAVEPOINT name | RELEASE name

Shell commands: .tables .schema <t> .describe <t> .functions .stats .help`

var helpTopics = map[string]string{
	"select": `SELECT * | col [AS alias] | COUNT(*) | fn(args) [, ...]
  FROM t [WHERE cond [AND cond ...]]
  [ORDER BY col [ASC|DESC], ...] [LIMIT n] [OFFSET m]

Conditions: = != <> < <= > >= LIKE, NOT LIKE, IS NULL, IS NOT NULL.
Scalar functions run per row; aggregates (sum, avg, min, max, ...) fold
the whole result into one row.`,

	"insert": `INSERT INTO t [(col, ...)] VALUES (v, ...) [, (v, ...)]

Bare words in VALUES are quoted as text, so VALUES (1, Ann) stores 'Ann'.`,

	"transactions": `BEGIN [DEFERRED|IMMEDIATE|EXCLUSIVE] [TRANSACTION]
COMMIT | END
ROLLBACK [TO [SAVEPOINT] name]
SAVEPOINT name
RELEASE [SAVEPOINT] name

A transaction open longer than the configured timeout fails at COMMIT.`,

	"functions": `CREATE FUNCTION name(a, b) RETURNS type AS 'body'

The body is one Starlark expression over the parameters, e.g.
  CREATE FUNCTION full_name(first, last) AS 'first + " " + last'
SHOW FUNCTIONS lists every built-in and user function.`,

	"create": `CREATE TABLE [IF NOT EXISTS] t (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  owner INTEGER REFERENCES users(id),
  active BOOLEAN DEFAULT TRUE
)
Types: INTEGER, REAL, TEXT, BLOB, BOOLEAN, TIMESTAMP, JSON.`,
}

// helpText returns the help for a topic, or the general help.
func helpText(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return generalHelp
	}
	if text, ok := helpTopics[topic]; ok {
		return text
	}
	topics := make([]string, 0, len(helpTopics))
	for t := range helpTopics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return "No help for '" + topic + "'. Topics: " + strings.Join(topics, ", ") + "\n\n" + generalHelp
}
