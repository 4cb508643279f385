package cvrio

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/electaudit/cvranon/internal/domain"
)

// voteRecord is the long-format Parquet row contract: one record per
// (voter, contest, candidate) combination.
type voteRecord struct {
	VoterID           string  `parquet:"voter_id"`
	Contest           string  `parquet:"contest"`
	Candidate         string  `parquet:"candidate"`
	IsVote            bool    `parquet:"isVote"`
	PrecinctPortionID float64 `parquet:"precinctPortionId"`
}

// standardHeaders is the identifying prefix produced by Parquet
// conversion. Long-format exports carry no tabulator/batch identity, so
// the conversion always emits the standard 8-column layout with
// placeholder values.
var standardHeaders = []string{
	"CvrNumber", "TabulatorNum", "BatchId", "RecordId",
	"ImprintedId", "CountingGroup", "PrecinctPortion", "BallotType",
}

// IsParquetFile reports whether the path looks like a Parquet file.
func IsParquetFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".parquet")
}

// readParquet converts a long-format Parquet CVR into the wide table
// shape: one row per voter, one column per (contest, candidate) pair,
// "1" for a vote, "0" when the contest was on the ballot without a vote
// for that candidate, and "" when the contest was absent.
func (r *Reader) readParquet(ctx context.Context, path string) (*domain.Table, error) {
	records, err := parquet.ReadFile[voteRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet cvr: %w", err)
	}

	votes := make([]voteRecord, 0, len(records))
	for _, rec := range records {
		if rec.IsVote {
			votes = append(votes, rec)
		}
	}
	if len(votes) == 0 {
		return nil, fmt.Errorf("%w: parquet file contains no votes", domain.ErrInvalidTable)
	}

	voters, contests, candidates := indexVotes(votes)

	prefix := len(standardHeaders)
	versionRow := make([]string, prefix)
	versionRow[0], versionRow[1] = "Parquet CVR", "V1"

	contestRow := make([]string, prefix)
	choiceRow := make([]string, prefix)
	headerRow := append([]string{}, standardHeaders...)
	for _, contest := range contests {
		for _, cand := range candidates[contest] {
			contestRow = append(contestRow, contest)
			choiceRow = append(choiceRow, cand)
			headerRow = append(headerRow, cand)
		}
	}

	// voter -> contest -> candidate votes, plus the style label.
	byVoter := make(map[string]map[string]map[string]bool)
	precinct := make(map[string]string)
	for _, rec := range votes {
		contestsOf, ok := byVoter[rec.VoterID]
		if !ok {
			contestsOf = make(map[string]map[string]bool)
			byVoter[rec.VoterID] = contestsOf
			precinct[rec.VoterID] = strconv.Itoa(int(rec.PrecinctPortionID))
		}
		candsOf, ok := contestsOf[rec.Contest]
		if !ok {
			candsOf = make(map[string]bool)
			contestsOf[rec.Contest] = candsOf
		}
		candsOf[rec.Candidate] = true
	}

	rows := make([]domain.BallotRow, 0, len(voters))
	for idx, voter := range voters {
		seq := strconv.Itoa(idx + 1)
		row := domain.BallotRow{seq, "1", "1", seq, voter, "1", precinct[voter], ""}
		for _, contest := range contests {
			onBallot := byVoter[voter][contest]
			for _, cand := range candidates[contest] {
				switch {
				case onBallot[cand]:
					row = append(row, "1")
				case len(onBallot) > 0:
					row = append(row, "0")
				default:
					row = append(row, "")
				}
			}
		}
		rows = append(rows, row)
	}

	return domain.NewTable(versionRow, contestRow, choiceRow, headerRow, rows,
		prefix, domain.ColPrecinctPortion)
}

// indexVotes returns sorted unique voters and contests plus the sorted
// candidate list per contest.
func indexVotes(votes []voteRecord) ([]string, []string, map[string][]string) {
	voterSet := make(map[string]bool)
	candSet := make(map[string]map[string]bool)
	for _, rec := range votes {
		voterSet[rec.VoterID] = true
		if candSet[rec.Contest] == nil {
			candSet[rec.Contest] = make(map[string]bool)
		}
		candSet[rec.Contest][rec.Candidate] = true
	}

	voters := make([]string, 0, len(voterSet))
	for v := range voterSet {
		voters = append(voters, v)
	}
	sort.Strings(voters)

	contests := make([]string, 0, len(candSet))
	candidates := make(map[string][]string, len(candSet))
	for contest, set := range candSet {
		contests = append(contests, contest)
		cands := make([]string, 0, len(set))
		for c := range set {
			cands = append(cands, c)
		}
		sort.Strings(cands)
		candidates[contest] = cands
	}
	sort.Strings(contests)

	return voters, contests, candidates
}
