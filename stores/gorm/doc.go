// Package gorm stores accounts in any database GORM supports (PostgreSQL,
// MySQL, SQLite and others).
//
// # Database Schema
//
// AutoMigrate creates the following tables:
//   - users: accounts
//   - identities: email, phone and provider subject identities
//   - channels: sign-in channels (password, google, github, ...)
//   - auth_tokens: verification, reset and phone codes
//   - refresh_tokens: refresh tokens, stored by hash only
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err := gormstore.AutoMigrate(db); err != nil {
//	    log.Fatal(err)
//	}
//	s := gormstore.New(db)
package gorm
