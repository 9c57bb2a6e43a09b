package core

import "cricketcore/pkg/domain"

// ResetForNewMatch clears the batting line of every player in team. It runs
// inside the caller's transaction so a match start resets both rosters or
// neither.
func ResetForNewMatch(tx domain.Transaction, team string) error {
	for _, p := range tx.ListTeamPlayers(team) {
		if _, err := tx.UpdatePlayer(p.ID, func(p *domain.Player) error {
			p.ResetStats()
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
