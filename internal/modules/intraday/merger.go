// Package intraday builds the chart series for one instrument by joining
// locally captured ticks with a remote trend feed.
package intraday

import (
	"sort"
	"time"

	"github.com/aristath/fundpulse/internal/domain"
)

// Series sources.
const (
	SourceLocal  = "local"
	SourceMerged = "merged"
	SourceRemote = "remote"
	SourceNone   = "none"
)

// Merge joins local ticks (authoritative for the range they cover) with
// remote points strictly before the first local tick. Without local ticks
// the remote series is used as is and flagged as history when it is not
// from today.
func Merge(code string, local []domain.Tick, remote []domain.TrendPoint, now time.Time) domain.IntradaySeries {
	remote = sortedTrend(remote)

	if len(local) == 0 {
		series := domain.IntradaySeries{InstrumentID: code, Points: remote, Source: SourceRemote}
		if len(remote) == 0 {
			series.Source = SourceNone
			series.Points = []domain.TrendPoint{}
			return series
		}
		series.IsHistory = !domain.SameDay(remote[0].Time, now)
		return series
	}

	first := local[0].Timestamp
	for _, t := range local[1:] {
		if t.Timestamp.Before(first) {
			first = t.Timestamp
		}
	}

	points := make([]domain.TrendPoint, 0, len(remote)+len(local))
	for _, p := range remote {
		if !p.Time.Before(first) {
			break
		}
		points = append(points, p)
	}
	backfilled := len(points)

	localPoints := make([]domain.TrendPoint, len(local))
	for i, t := range local {
		localPoints[i] = domain.TrendPoint{Time: t.Timestamp, PctChange: t.PctChange, Value: t.Price}
	}
	points = append(points, sortedTrend(localPoints)...)

	source := SourceLocal
	if backfilled > 0 {
		source = SourceMerged
	}
	return domain.IntradaySeries{InstrumentID: code, Points: points, Source: source}
}

func sortedTrend(points []domain.TrendPoint) []domain.TrendPoint {
	if sort.SliceIsSorted(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) }) {
		return points
	}
	out := make([]domain.TrendPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
