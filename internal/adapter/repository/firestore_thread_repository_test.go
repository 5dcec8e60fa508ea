package repository

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"
)

// TestFirestoreStores runs against the emulator named by
// FIRESTORE_EMULATOR_HOST.
func TestFirestoreStores(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "vendorchat-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	runStoreSuite(t, storeSet{
		threads:  NewFirestoreThreadRepository(client),
		messages: NewFirestoreMessageRepository(client),
		ledger:   NewFirestoreUnreadLedger(client),
	})
}
