package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name      string
		opts      *ListQueryOptions
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "bare table",
			opts:      NewListQueryOptions("listings"),
			wantQuery: `SELECT * FROM "listings"`,
		},
		{
			name: "columns order and paging",
			opts: NewListQueryOptions("listings",
				WithColumns("id", "l.title"),
				WithOrderBy("created_at", "desc"),
				WithLimit(20),
				WithOffset(40),
			),
			wantQuery: `SELECT "id", "l"."title" FROM "listings" ORDER BY "created_at" DESC LIMIT $1 OFFSET $2`,
			wantArgs:  []any{20, 40},
		},
		{
			name: "field and raw conditions share numbering",
			opts: NewListQueryOptions("listings",
				WithCondition(WhereCond("collection", Equal, "locations")),
				WithCondition(WhereRawCond("owner_id::text = $1", "p-1")),
				WithCondition(WhereRawCond("deleted_at IS NULL")),
				WithLimit(5),
			),
			wantQuery: `SELECT * FROM "listings" WHERE "collection" = $1 AND owner_id::text = $2 AND deleted_at IS NULL LIMIT $3`,
			wantArgs:  []any{"locations", "p-1", 5},
		},
		{
			name: "repeated raw placeholder binds once",
			opts: NewListQueryOptions("listings",
				WithCondition(WhereCond("moderation_status", NotEqual, "rejected")),
				WithCondition(WhereRawCond("(title ILIKE $1 OR slug ILIKE $1) AND $2 > 0", "%sala%", 3)),
			),
			wantQuery: `SELECT * FROM "listings" WHERE "moderation_status" != $1 AND (title ILIKE $2 OR slug ILIKE $2) AND $3 > 0`,
			wantArgs:  []any{"rejected", "%sala%", 3},
		},
		{
			name: "in expands slices and skips empty ones",
			opts: NewListQueryOptions("media",
				WithCondition(WhereCond("id", In, []string{"a", "b"})),
				WithCondition(WhereCond("kind", In, []string{})),
			),
			wantQuery: `SELECT * FROM "media" WHERE "id" IN ($1, $2)`,
			wantArgs:  []any{"a", "b"},
		},
		{
			name: "count ignores paging",
			opts: NewListQueryOptions("listings",
				WithCountOnly(),
				WithCondition(WhereCond("collection", Equal, "events")),
				WithOrderBy("created_at", "ASC"),
				WithLimit(10),
			),
			wantQuery: `SELECT COUNT(*) FROM "listings" WHERE "collection" = $1`,
			wantArgs:  []any{"events"},
		},
		{
			name: "invalid direction is dropped and negative paging ignored",
			opts: NewListQueryOptions("listings",
				WithOrderBy("title", "sideways"),
				WithLimit(-1),
				WithOffset(-5),
			),
			wantQuery: `SELECT * FROM "listings" ORDER BY "title"`,
		},
		{
			name:      "identifiers are quoted",
			opts:      NewListQueryOptions(`list"ings`, WithCondition(WhereCond(`bad"col`, Equal, 1))),
			wantQuery: `SELECT * FROM "list""ings" WHERE "bad""col" = $1`,
			wantArgs:  []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := BuildListQuery(tt.opts)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildListQuery_Nil(t *testing.T) {
	query, args := BuildListQuery(nil)
	assert.Empty(t, query)
	assert.Nil(t, args)
}

func TestWhereRawCond_OutOfRangePlaceholder(t *testing.T) {
	query, args := BuildListQuery(NewListQueryOptions("listings",
		WithCondition(WhereRawCond("a = $1 AND b = $2", "x")),
	))
	assert.Equal(t, `SELECT * FROM "listings" WHERE a = $1 AND b = $2`, query)
	assert.Equal(t, []any{"x"}, args)
}
