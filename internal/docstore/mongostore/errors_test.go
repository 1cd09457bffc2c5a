package mongostore

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/example/student-affairs/internal/docstore"
)

func TestClassifyTransactionError(t *testing.T) {
	t.Parallel()

	standalone := mongo.CommandError{
		Code:    codeIllegalOperation,
		Name:    "IllegalOperation",
		Message: "Transaction numbers are only allowed on a replica set member or mongos",
	}
	other := mongo.CommandError{Code: 11000, Name: "DuplicateKey"}

	tests := []struct {
		name        string
		err         error
		unsupported bool
	}{
		{name: "nil", err: nil},
		{name: "standalone refusal", err: standalone, unsupported: true},
		{name: "wrapped standalone refusal", err: fmt.Errorf("mongostore: find featured_event: %w", standalone), unsupported: true},
		{name: "other server error", err: other},
		{name: "plain error", err: errors.New("network down")},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classifyTransactionError(tc.err)
			if errors.Is(got, docstore.ErrTransactionsUnsupported) != tc.unsupported {
				t.Fatalf("classifyTransactionError(%v) = %v, unsupported want %v", tc.err, got, tc.unsupported)
			}
			if tc.err == nil && got != nil {
				t.Fatalf("expected nil, got %v", got)
			}
		})
	}
}

func TestUnsupportedOnStandaloneChangeStreams(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("watch: %w", mongo.CommandError{Code: codeChangeStreamNotSupported, Message: "The $changeStream stage is only supported on replica sets"})
	if !unsupportedOnStandalone(err) {
		t.Fatal("expected change stream refusal to be recognised")
	}
}
