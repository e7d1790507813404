package psqlbuilder

import "github.com/Masterminds/squirrel"

// builder uses PostgreSQL $N placeholders
var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Select starts a SELECT statement
func Select(columns ...string) squirrel.SelectBuilder {
	return builder.Select(columns...)
}

// Insert starts an INSERT statement
func Insert(table string) squirrel.InsertBuilder {
	return builder.Insert(table)
}

// Update starts an UPDATE statement
func Update(table string) squirrel.UpdateBuilder {
	return builder.Update(table)
}

