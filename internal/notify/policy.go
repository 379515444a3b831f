// Package notify composes and dispatches the outcome message of a candidate application.
package notify

import (
	"fmt"

	"github.com/spigell/lumino/internal/candidate"
)

// Tier is the tone of an outcome message.
type Tier string

const (
	TierInvite  Tier = "invite"
	TierReview  Tier = "review"
	TierDecline Tier = "decline"
)

const (
	DefaultInviteThreshold = 90
	DefaultReviewThreshold = 50
)

// Policy maps a similarity score to a tier. Lower bounds are inclusive.
// A review threshold equal to the invite threshold leaves no review band.
type Policy struct {
	InviteThreshold int
	ReviewThreshold int
}

func DefaultPolicy() Policy {
	return Policy{InviteThreshold: DefaultInviteThreshold, ReviewThreshold: DefaultReviewThreshold}
}

func (p Policy) Validate() error {
	if p.InviteThreshold < candidate.MinScore || p.InviteThreshold > candidate.MaxScore {
		return fmt.Errorf("invite threshold %d is outside [%d, %d]", p.InviteThreshold, candidate.MinScore, candidate.MaxScore)
	}
	if p.ReviewThreshold < candidate.MinScore || p.ReviewThreshold > p.InviteThreshold {
		return fmt.Errorf("review threshold %d must be within [%d, %d]", p.ReviewThreshold, candidate.MinScore, p.InviteThreshold)
	}
	return nil
}

func (p Policy) Tier(score int) Tier {
	switch {
	case score >= p.InviteThreshold:
		return TierInvite
	case score >= p.ReviewThreshold:
		return TierReview
	default:
		return TierDecline
	}
}

// Guidance describes the tone the message must take for a tier.
func (t Tier) Guidance() string {
	switch t {
	case TierInvite:
		return "Congratulate the candidate and invite them to an interview as the next step."
	case TierReview:
		return "Thank the candidate, confirm the application is under review and say the team will follow up."
	default:
		return "Politely decline in a warm, encouraging way and invite the candidate to apply for future roles. Never be discouraging."
	}
}
