package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// Diarization geometry and clustering knobs.
const (
	diarWindowSeconds = 1.0
	diarHopSeconds    = 0.5

	// diarSpeechFloorDB marks a window as speech when its mean level
	// clears this floor.
	diarSpeechFloorDB = -40.0

	// diarClusterDistance is the maximum feature distance at which a
	// speech window joins an existing speaker cluster.
	diarClusterDistance = 0.35

	// diarMaxSpeakers caps cluster creation; beyond it windows attach to
	// the nearest cluster regardless of distance.
	diarMaxSpeakers = 6
)

// Diarizer segments a recording by speaker using energy gating and greedy
// feature clustering. Labels are assigned in order of first appearance.
type Diarizer struct {
	extractor *Extractor
}

func NewDiarizer(extractor *Extractor) *Diarizer {
	return &Diarizer{extractor: extractor}
}

type diarCluster struct {
	label    string
	centroid []float64
	pitch    float64
	count    int
}

// Diarize answers "who spoke when". When knownProfiles are supplied, clusters
// whose centroid matches an enrolled signature above the identification
// threshold take that profile's display name as their label.
func (d *Diarizer) Diarize(ctx context.Context, clip *audio.Clip, knownProfiles []ProfileCandidate) (*models.DiarizationResult, error) {
	const op = "Diarizer.Diarize"

	windows, err := d.extractor.ExtractWindows(ctx, clip, diarWindowSeconds, diarHopSeconds)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "window extraction failed", err)
	}

	result := &models.DiarizationResult{
		AudioID:    clip.AudioID,
		AnalyzedAt: time.Now().UTC(),
	}

	assignments := make([]int, len(windows)) // -1 = silence
	var clusters []*diarCluster
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, utils.E(utils.CodeTimeout, op, "cancelled", err)
		}
		if w.Intensity < diarSpeechFloorDB {
			assignments[i] = -1
			continue
		}
		assignments[i] = d.assign(&clusters, w)
	}

	if len(clusters) == 0 {
		result.Warnings = append(result.Warnings, "no speech detected; recording is silence or below the speech floor")
		result.Segments = []models.SpeakerSegment{}
		result.Stats = []models.SpeakerStats{}
		return result, nil
	}

	relabelWithProfiles(clusters, knownProfiles, windows, assignments)

	result.NumSpeakers = len(clusters)
	result.Segments = buildSegments(windows, assignments, clusters)
	result.Stats = buildStats(result.Segments)
	if len(clusters) == diarMaxSpeakers {
		result.Warnings = append(result.Warnings, fmt.Sprintf("speaker count capped at %d; distinct voices beyond that are merged", diarMaxSpeakers))
	}
	return result, nil
}

func (d *Diarizer) assign(clusters *[]*diarCluster, w models.FeatureWindow) int {
	vec := w.MFCCMean
	bestIdx, bestDist := -1, 0.0
	for i, c := range *clusters {
		dist := 1 - CosineSimilarity(vec, c.centroid)
		if bestIdx < 0 || dist < bestDist {
			bestIdx, bestDist = i, dist
		}
	}

	if bestIdx >= 0 && (bestDist <= diarClusterDistance || len(*clusters) >= diarMaxSpeakers) {
		c := (*clusters)[bestIdx]
		for j := range c.centroid {
			c.centroid[j] = (c.centroid[j]*float64(c.count) + vec[j]) / float64(c.count+1)
		}
		c.pitch = (c.pitch*float64(c.count) + w.Pitch) / float64(c.count+1)
		c.count++
		return bestIdx
	}

	c := &diarCluster{
		label:    fmt.Sprintf("SPEAKER_%02d", len(*clusters)),
		centroid: append([]float64{}, vec...),
		pitch:    w.Pitch,
		count:    1,
	}
	*clusters = append(*clusters, c)
	return len(*clusters) - 1
}

// relabelWithProfiles renames clusters after enrolled speakers when the
// cluster's aggregate signature clears the identification threshold.
func relabelWithProfiles(clusters []*diarCluster, profiles []ProfileCandidate, windows []models.FeatureWindow, assignments []int) {
	if len(profiles) == 0 {
		return
	}
	for idx, c := range clusters {
		sig := clusterSignature(c, windows, assignments, idx)
		bestName, bestScore := "", 0.0
		for _, p := range profiles {
			if s := IdentifySimilarity(sig, p.Signature); s > bestScore {
				bestName, bestScore = p.DisplayName, s
			}
		}
		if bestScore >= IdentificationThreshold {
			c.label = bestName
		}
	}
}

// clusterSignature approximates a CompactSignature from the windows assigned
// to one cluster. Perturbation measures are unavailable at window granularity
// and stay zero; the identification weighting tolerates that.
func clusterSignature(c *diarCluster, windows []models.FeatureWindow, assignments []int, idx int) models.CompactSignature {
	sig := models.CompactSignature{
		MFCCMean:  append([]float64{}, c.centroid...),
		MFCCStd:   make([]float64, len(c.centroid)),
		PitchMean: c.pitch,
	}
	n := 0
	for i, a := range assignments {
		if a != idx {
			continue
		}
		for j, v := range windows[i].MFCCStd {
			sig.MFCCStd[j] += v
		}
		sig.SpectralCentroidMean += windows[i].SpectralCentroid
		n++
	}
	if n > 0 {
		for j := range sig.MFCCStd {
			sig.MFCCStd[j] /= float64(n)
		}
		sig.SpectralCentroidMean /= float64(n)
	}
	return sig
}

// buildSegments merges consecutive windows with the same assignment into
// ordered, non-overlapping segments. Window overlap is resolved by letting a
// segment end where the next one starts.
func buildSegments(windows []models.FeatureWindow, assignments []int, clusters []*diarCluster) []models.SpeakerSegment {
	var segments []models.SpeakerSegment
	cur := -2 // sentinel distinct from both silence and every cluster
	for i, a := range assignments {
		if a == cur {
			segments[len(segments)-1].EndTime = windows[i].EndTime
			continue
		}
		if a >= 0 {
			if len(segments) > 0 && segments[len(segments)-1].EndTime > windows[i].StartTime {
				segments[len(segments)-1].EndTime = windows[i].StartTime
			}
			segments = append(segments, models.SpeakerSegment{
				SpeakerLabel: clusters[a].label,
				StartTime:    windows[i].StartTime,
				EndTime:      windows[i].EndTime,
				Confidence:   clusterConfidence(clusters[a]),
			})
		}
		cur = a
	}
	// Drop any segment squeezed to zero length by overlap resolution.
	out := segments[:0]
	for _, s := range segments {
		if s.StartTime < s.EndTime {
			out = append(out, s)
		}
	}
	return out
}

// clusterConfidence grows with the evidence behind the cluster and saturates.
func clusterConfidence(c *diarCluster) float64 {
	conf := 0.5 + float64(c.count)*0.05
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func buildStats(segments []models.SpeakerSegment) []models.SpeakerStats {
	byLabel := map[string]*models.SpeakerStats{}
	var order []string
	for _, s := range segments {
		st, ok := byLabel[s.SpeakerLabel]
		if !ok {
			st = &models.SpeakerStats{SpeakerLabel: s.SpeakerLabel}
			byLabel[s.SpeakerLabel] = st
			order = append(order, s.SpeakerLabel)
		}
		st.TalkTime += s.EndTime - s.StartTime
		st.TurnCount++
	}
	sort.Strings(order)
	out := make([]models.SpeakerStats, 0, len(order))
	for _, label := range order {
		out = append(out, *byLabel[label])
	}
	return out
}
