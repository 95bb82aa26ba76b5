package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/Boardroom/internal/domain/vote"
)

// CreateVote records a verdict. A second vote by the same voter on the same
// votable is a constraint violation.
func (s *Store) CreateVote(ctx context.Context, v *vote.Vote) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO votes (id, votable_type, votable_id, voter_id, voter_type, weight, direction, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT DO NOTHING`,
		v.ID, string(v.VotableType), v.VotableID, v.VoterID, string(v.VoterType), v.Weight, int(v.Direction), v.CreatedAt)
	return insertedOne(tag, err, "create vote by %s on %s %s", v.VoterID, v.VotableType, v.VotableID)
}

func (s *Store) ListVotes(ctx context.Context, votableType vote.VotableType, votableID string) ([]vote.Vote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, votable_type, votable_id, voter_id, voter_type, weight, direction, created_at
		 FROM votes WHERE votable_type = $1 AND votable_id = $2
		 ORDER BY created_at, id`, string(votableType), votableID)
	if err != nil {
		return nil, wrapf(err, "list votes %s %s", votableType, votableID)
	}
	defer rows.Close()

	out := []vote.Vote{}
	for rows.Next() {
		var (
			v                vote.Vote
			vtype, voterType string
			direction        int16
		)
		if err := rows.Scan(&v.ID, &vtype, &v.VotableID, &v.VoterID, &voterType, &v.Weight, &direction, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.VotableType = vote.VotableType(vtype)
		v.VoterType = vote.VoterType(voterType)
		v.Direction = vote.Direction(direction)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "list votes %s %s", votableType, votableID)
	}
	return out, nil
}
