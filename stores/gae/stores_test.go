package gae

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/require"

	"github.com/panyam/rxauth/stores/storetest"
)

func TestDatastoreStores(t *testing.T) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	project := os.Getenv("DATASTORE_PROJECT_ID")
	if project == "" {
		project = "rxauth-test"
	}
	client, err := datastore.NewClient(context.Background(), project)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	namespace := fmt.Sprintf("test-%d", time.Now().UnixNano())
	storetest.RunAll(t, New(client, namespace))
}
