package assay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetFailureReporter_FirstInstallWins(t *testing.T) {
	var got []string
	first := func(t *testing.T, instance, runID, excerpt string) {
		got = append(got, "first:"+instance+":"+runID+":"+excerpt)
	}
	second := func(t *testing.T, instance, runID, excerpt string) {
		got = append(got, "second:"+instance)
	}

	SetFailureReporter(first)
	SetFailureReporter(second)

	reportFailure(t, "TestThing", "run-1", "it broke")
	require.Equal(t, []string{"first:TestThing:run-1:it broke"}, got)
}
