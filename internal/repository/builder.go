package repository

import sq "github.com/Masterminds/squirrel"

// psql is the statement builder shared by list and aggregate queries.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
