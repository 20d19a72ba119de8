package model

import "github.com/shopspring/decimal"

// HomeStats are the numbers shown on the public home page.
type HomeStats struct {
	Participants   int64
	TotalDonations decimal.Decimal
}

// LoadHomeStats counts participants and adds the donation totals of
// participants and walk-in donors.
func (s *Store) LoadHomeStats() (HomeStats, error) {
	var stats HomeStats
	if err := s.db.Model(&Participant{}).Count(&stats.Participants).Error; err != nil {
		return stats, err
	}
	var participantTotal, donorTotal decimal.NullDecimal
	if err := s.db.Model(&Participant{}).Select("SUM(total_donations)").Row().Scan(&participantTotal); err != nil {
		return stats, err
	}
	if err := s.db.Model(&UserDonor{}).Select("SUM(amount)").Row().Scan(&donorTotal); err != nil {
		return stats, err
	}
	stats.TotalDonations = participantTotal.Decimal.Add(donorTotal.Decimal)
	return stats, nil
}
