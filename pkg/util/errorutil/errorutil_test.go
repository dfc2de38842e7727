package util

import (
	"errors"
	"fmt"
	"testing"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	err := NewMissingBotPerms([]string{"ManageChannels"})
	domainErr := ToDomainError(err)
	if domainErr.Code != "MISSING_BOT_PERMS" || domainErr.HTTPStatus != 500 {
		t.Fatalf("unexpected %+v", domainErr)
	}
	perms, ok := domainErr.Extra["missingPerms"].([]string)
	if !ok || len(perms) != 1 || perms[0] != "ManageChannels" {
		t.Fatalf("unexpected extra %v", domainErr.Extra)
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")
	domainErr := ToDomainError(fmt.Errorf("remote call: %w", cause))
	if domainErr.Code != "SERVER_ERROR" || domainErr.HTTPStatus != 500 {
		t.Fatalf("unexpected %+v", domainErr)
	}
	if !errors.Is(domainErr, cause) {
		t.Fatal("cause not preserved")
	}
}

func TestToDomainErrorWrappedDomainError(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NewBotNotReady())
	domainErr := ToDomainError(wrapped)
	if domainErr.Code != "BOT_NOT_READY" || domainErr.HTTPStatus != 503 {
		t.Fatalf("unexpected %+v", domainErr)
	}
}

func TestToDomainErrorNil(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Fatal("expected nil")
	}
}
