package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "session:abc:seq", FormatSessionSeqKey("abc"))
	assert.Equal(t, "session:abc:snapshot", FormatSessionSnapshotKey("abc"))
	assert.Equal(t, "session:abc:leaderboard", FormatSessionLeaderboardKey("abc"))
	assert.Equal(t, "session:events", FormatSessionEventsChannel())
}
