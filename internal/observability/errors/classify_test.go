package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/unevent/unevent-api/internal/errors"
)

type customErr struct{}

func (customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	assert.Equal(t, "", Classify(nil))
	assert.Equal(t, "timeout", Classify(fmt.Errorf("send: %w", context.DeadlineExceeded)))
	assert.Equal(t, "canceled", Classify(context.Canceled))
	assert.Equal(t, "validation", Classify(apperrors.Validation("bad")))
	assert.Equal(t, "errors_customerr", Classify(fmt.Errorf("wrap: %w", customErr{})))
	assert.Equal(t, "unknown", Classify(goerrors.New("plain")))
}
