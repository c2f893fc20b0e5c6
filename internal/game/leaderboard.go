package game

import (
	"cellarena/internal/game/spatial"
)

// Leaderboard ranks alive players by mass using the skip list's O(log n)
// insert/remove/rank operations. Its comparator already orders entries by
// descending score with ascending key as the tie-break, which is exactly
// the (mass desc, id asc) ordering the broadcast leaderboard needs.
type Leaderboard struct {
	skipList *spatial.SkipList
}

// LeaderEntry is one ranked row, 1-indexed (Rank 1 = heaviest).
type LeaderEntry struct {
	PlayerID string
	Mass     float64
	Rank     int
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{skipList: spatial.NewSkipList()}
}

// UpdateMass inserts or repositions a player at the given mass. O(log n).
func (lb *Leaderboard) UpdateMass(playerID string, mass float64) {
	lb.skipList.Insert(playerID, mass)
}

// Remove drops a player from the leaderboard. O(log n).
func (lb *Leaderboard) Remove(playerID string) {
	lb.skipList.Remove(playerID)
}

// Rank returns a player's 1-indexed rank, or 0 if absent.
func (lb *Leaderboard) Rank(playerID string) int {
	return lb.skipList.GetRank(playerID)
}

// Top returns the top n entries by mass, heaviest first.
func (lb *Leaderboard) Top(n int) []LeaderEntry {
	entries := lb.skipList.GetRange(1, n)
	result := make([]LeaderEntry, len(entries))
	for i, e := range entries {
		result[i] = LeaderEntry{PlayerID: e.Key, Mass: e.Score, Rank: i + 1}
	}
	return result
}

// Length returns the number of players currently ranked.
func (lb *Leaderboard) Length() int {
	return lb.skipList.Length()
}

// Clear removes every player from the leaderboard.
func (lb *Leaderboard) Clear() {
	lb.skipList.Clear()
}
