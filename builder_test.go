package docgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docgo/document"
)

func TestQueryBuilderAll(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	docs, err := db.Query("users").
		Where("age", Gt(26)).
		SortBy("age", Desc).
		Skip(1).
		Limit(2).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, document.Int(30), docs[0]["age"])
	assert.Equal(t, document.Int(28), docs[1]["age"])
}

func TestQueryBuilderWherePlainEquality(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	docs, err := db.Query("users").Where("city", "berlin").All(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestQueryBuilderConditionHelpers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	tests := []struct {
		name  string
		field string
		cond  any
		want  int
	}{
		{"Eq", "name", Eq("ann"), 1},
		{"Gte", "age", Gte(30), 2},
		{"Lt", "age", Lt(28), 1},
		{"Lte", "age", Lte(28), 2},
		{"In", "city", In("berlin", "munich"), 3},
		{"Nin", "city", Nin("berlin", "munich"), 1},
		{"Ne", "name", Ne("ann"), 3},
		{"Exists", "nickname", Exists(false), 4},
		{"Type", "age", Type("number"), 4},
		{"Regex", "name", Regex("^[ab]"), 2},
		{"Not", "age", Not(Gt(28)), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := db.Query("users").Where(tt.field, tt.cond).Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestQueryBuilderArrayConditions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.Insert(ctx, "posts", map[string]any{
		"id": "p1", "tags": []any{"go", "db"}, "scores": []any{85, 92},
	})
	require.NoError(t, err)
	_, err = db.Insert(ctx, "posts", map[string]any{
		"id": "p2", "tags": []any{"go"}, "scores": []any{70, 75},
	})
	require.NoError(t, err)

	n, err := db.Query("posts").Where("tags", All("go", "db")).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.Query("posts").Where("tags", Size(1)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.Query("posts").Where("scores", ElemMatch(Gt(90))).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQueryBuilderOr(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	docs, err := db.Query("users").
		Or(
			map[string]any{"name": "ann"},
			map[string]any{"age": Gt(30)},
		).
		All(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2) // ann and cai

	// Field conditions stay conjunctive with $or.
	docs, err = db.Query("users").
		Where("city", "berlin").
		Or(
			map[string]any{"name": "ann"},
			map[string]any{"name": "dee"},
		).
		All(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestQueryBuilderFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	doc, err := db.Query("users").
		Where("city", "berlin").
		SortBy("age", Desc).
		First(ctx)
	require.NoError(t, err)
	assert.Equal(t, document.String("cai"), doc["name"])

	_, err = db.Query("users").Where("name", "zed").First(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryBuilderCountIgnoresPaging(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	n, err := db.Query("users").Limit(1).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestQueryBuilderInvalidCondition(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	_, err := db.Query("users").Where("meta", struct{}{}).All(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "meta"`)
}

func TestQueryBuilderMultiSort(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	docs, err := db.Query("users").
		SortBy("city", Asc).
		SortBy("age", Desc).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, document.String("cai"), docs[0]["name"])
	assert.Equal(t, document.String("ann"), docs[1]["name"])
	assert.Equal(t, document.String("bob"), docs[2]["name"])
	assert.Equal(t, document.String("dee"), docs[3]["name"])
}
