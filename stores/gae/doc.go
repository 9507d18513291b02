// Package gae stores accounts in Google Cloud Datastore (Firestore in
// Datastore mode), including App Engine deployments.
//
// Entity kinds are User, Identity, Channel, AuthToken and RefreshToken. Every
// key is created in the namespace passed to New, so several deployments can
// share one project. Profile and credential maps are stored as unindexed
// JSON blobs.
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	s := gae.New(client, "rxauth")
//
// Tests run against the Datastore emulator when DATASTORE_EMULATOR_HOST is
// set and are skipped otherwise.
package gae
