// Package stores holds the account model behind the local identity SDK and
// the storage interfaces its backends implement.
//
// An account is split three ways:
//
//   - User: the account itself (profile, disabled flag, timestamps).
//   - Identity: a contact handle the user owns, such as an email address or
//     phone number, with a verified flag.
//   - Channel: one way of signing in, keyed by provider and identity key. The
//     password channel carries the bcrypt hash; OAuth channels carry the
//     provider profile.
//
// Out-of-band codes (email verification, password reset, phone verification)
// live in a TokenStore and refresh tokens in a RefreshTokenStore.
//
// Backends live in the fs, gorm, gae and redis subpackages.
package stores
