// Package postgres stores authd users in PostgreSQL through pgx.
//
// The schema ships as embedded golang-migrate files; run [Migrator.Up] (or
// `authd migrate up`) before serving. IP history lives in a JSONB column and
// emails are unique case-insensitively through an index on LOWER(email).
// Infrastructure failures are wrapped with samber/oops codes; not-found and
// duplicate cases still match authd.ErrUserNotFound and authd.ErrUserExists
// under errors.Is.
package postgres
