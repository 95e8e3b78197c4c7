// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for the storefront tables (products, coupons, orders,
// order items, payments, api keys). It is executed as one batch by the
// migration runner; every statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
