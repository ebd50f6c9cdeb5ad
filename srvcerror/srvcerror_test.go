package srvcerror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDefaults(t *testing.T) {
	err := srvcerror.New("some_code", "kaut kas nogāja greizi")
	assert.Equal(t, "some_code", err.ErrorCode())
	assert.Equal(t, "kaut kas nogāja greizi", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.HttpStatusCode())
	assert.Nil(t, err.DebugInfo())
}

func TestErrSubmNotFound(t *testing.T) {
	id := uuid.New()
	err := srvcerror.ErrSubmNotFound(id)
	assert.Equal(t, srvcerror.ErrCodeSubmNotFound, err.ErrorCode())
	assert.Equal(t, http.StatusNotFound, err.HttpStatusCode())
	assert.Contains(t, err.Error(), id.String())
}

func TestErrScoringMisconfiguredUnwraps(t *testing.T) {
	cause := &scoring.MissingEvaluationError{Subtask: 2, Codename: "t4"}
	wrapped := fmt.Errorf("score subm: %w", srvcerror.ErrScoringMisconfigured(cause))

	var srvcErr *srvcerror.Error
	require.True(t, errors.As(wrapped, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeScoringMisconfigured, srvcErr.ErrorCode())
	assert.NotContains(t, srvcErr.Error(), "t4")

	var missing *scoring.MissingEvaluationError
	require.True(t, errors.As(wrapped, &missing))
	assert.Equal(t, "t4", missing.Codename)
}
