// Package fs stores accounts as JSON files under a root directory, one file
// per record:
//
//	<root>/users/<id>.json
//	<root>/identities/<type:value>.json
//	<root>/channels/<provider>/<identity key>.json
//	<root>/tokens/<token>.json
//	<root>/refresh_tokens/<sha256(token)>.json
//
// Writes go through a temp file and rename so readers never see a partial
// record. It is meant for development and single-process deployments.
package fs

import "github.com/panyam/rxauth/stores"

// New returns every store rooted at path.
func New(path string) stores.Stores {
	return stores.Stores{
		Users:         NewFSUserStore(path),
		Identities:    NewFSIdentityStore(path),
		Channels:      NewFSChannelStore(path),
		Tokens:        NewFSTokenStore(path),
		RefreshTokens: NewFSRefreshTokenStore(path),
	}
}
