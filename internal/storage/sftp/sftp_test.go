package sftp

import (
	"errors"
	"testing"

	"github.com/pkg/sftp"
)

func TestIsNotExistMatchesStatusCode(t *testing.T) {
	err := &sftp.StatusError{Code: uint32(sftp.ErrSSHFxNoSuchFile)}
	if !isNotExist(err) {
		t.Fatal("expected StatusError with ErrSSHFxNoSuchFile code to match")
	}

	other := &sftp.StatusError{Code: uint32(sftp.ErrSSHFxPermissionDenied)}
	if isNotExist(other) {
		t.Fatal("did not expect permission-denied status to match not-exist")
	}
}

func TestIsNotExistIgnoresUnrelatedErrors(t *testing.T) {
	if isNotExist(errors.New("boom")) {
		t.Fatal("unrelated error should not match isNotExist")
	}
}
