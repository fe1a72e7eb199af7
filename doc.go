// Package docgo provides an embedded JSON document database for Go.
//
// Docgo stores schema-less collections of documents, one JSON file per
// collection, and queries them with a MongoDB-style operator language:
//
//   - Comparison operators: $eq, $gt, $gte, $lt, $lte, $ne
//   - Set operators: $in, $nin, $all, $size, $elemMatch
//   - Field operators: $exists, $type, $regex
//   - Logical combinators: $and, $or, $not
//   - Secondary indexes with unique and sparse policies
//   - Transactions with snapshot-based rollback
//   - Pluggable persistence: local files, memory, S3, MinIO, sqlite
//
// # Quick Start
//
//	ctx := context.Background()
//	db, err := docgo.Open("./data")
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close(ctx)
//
//	doc, _ := db.Insert(ctx, "users", map[string]any{
//	    "name": "Mia",
//	    "age":  31,
//	})
//
//	adults, _ := db.Find(ctx, "users", map[string]any{
//	    "age": map[string]any{"$gte": 18},
//	}, nil)
//
// Or with the fluent builder:
//
//	adults, _ := db.Query("users").
//	    Where("age", docgo.Gte(18)).
//	    SortBy("age", docgo.Desc).
//	    Limit(10).
//	    All(ctx)
//
// # Indexes
//
//	err = db.CreateIndex(ctx, "users", "email", index.Config{Unique: true})
//
// Equality finds on indexed fields are served from the index posting
// instead of a full scan.
//
// # Transactions
//
//	tx := db.Begin(ctx)
//	tx.Insert("accounts", docA)
//	tx.Update("accounts", query, patch)
//	if err := tx.Commit(ctx); err != nil {
//	    // buffered operations were rolled back
//	}
//
// Update and Delete match by exact field equality only; the operator
// language applies to finds.
package docgo
