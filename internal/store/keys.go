package store

import (
	"fmt"
	"strings"
)

// Key layout shared by every process. Changing any of these is a wire-incompatible change.
const (
	MetadataKey     = "metadata"
	MetadataSockets = "sockets"

	channelPrefix = "mc/"
)

// PoolPatterns match every pending pool, quarantined or not.
var PoolPatterns = []string{"pm/*", "q/pm/*"}

func UserKey(id string) string {
	return "u/" + id
}

func MatchKey(id string) string {
	return "m/" + id
}

// PoolKey names the pending-match set for one (rules, bet, quarantine) partition.
func PoolKey(rules string, bet int64, quarantine bool) string {
	key := fmt.Sprintf("pm/%s/%d", rules, bet)
	if quarantine {
		return "q/" + key
	}
	return key
}

func StatsKey(userID, rules string) string {
	return "us/" + userID + "/" + rules
}

// MatchChannel is the pub/sub channel carrying one match's events.
func MatchChannel(matchID string) string {
	return channelPrefix + matchID
}

// MatchIDFromChannel is the inverse of MatchChannel.
func MatchIDFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, channelPrefix)
	return id, ok && id != ""
}
