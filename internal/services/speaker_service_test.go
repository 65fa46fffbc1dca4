package services

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/veridict/voicelab/internal/audio"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/utils"
)

// fakeProfileRepo is an in-memory SpeakerProfileRepository that counts which
// candidate-loading path identification takes.
type fakeProfileRepo struct {
	profiles     map[string]models.SpeakerProfile
	nearestCalls int
	listCalls    int
	caseCalls    int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]models.SpeakerProfile{}}
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *models.SpeakerProfile) error {
	r.profiles[p.ProfileID] = *p
	return nil
}

func (r *fakeProfileRepo) GetByProfileID(ctx context.Context, profileID string) (*models.SpeakerProfile, error) {
	p, ok := r.profiles[profileID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *fakeProfileRepo) List(ctx context.Context) ([]models.SpeakerProfile, error) {
	r.listCalls++
	return r.all(), nil
}

func (r *fakeProfileRepo) ListByCase(ctx context.Context, caseID string) ([]models.SpeakerProfile, error) {
	r.caseCalls++
	var out []models.SpeakerProfile
	for _, p := range r.all() {
		if p.CaseID == caseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) Upsert(ctx context.Context, p *models.SpeakerProfile) error {
	// Running statistics survive a re-import, matching the conflict columns
	// of the real upsert.
	if existing, ok := r.profiles[p.ProfileID]; ok {
		p.IdentificationCount = existing.IdentificationCount
		p.AvgMatchConfidence = existing.AvgMatchConfidence
	}
	r.profiles[p.ProfileID] = *p
	return nil
}

func (r *fakeProfileRepo) UpdateStats(ctx context.Context, profileID string, identificationCount int, avgMatchConfidence float64) error {
	p, ok := r.profiles[profileID]
	if !ok {
		return utils.ErrNotFound
	}
	p.IdentificationCount = identificationCount
	p.AvgMatchConfidence = avgMatchConfidence
	r.profiles[profileID] = p
	return nil
}

func (r *fakeProfileRepo) Delete(ctx context.Context, profileID string) error {
	if _, ok := r.profiles[profileID]; !ok {
		return utils.ErrNotFound
	}
	delete(r.profiles, profileID)
	return nil
}

func (r *fakeProfileRepo) NearestByEmbedding(ctx context.Context, embedding pgvector.Vector, limit int) ([]models.SpeakerProfile, error) {
	r.nearestCalls++
	out := r.all()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeProfileRepo) all() []models.SpeakerProfile {
	out := make([]models.SpeakerProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfileID < out[j].ProfileID })
	return out
}

type fakeFeatureService struct {
	features map[string]*models.AudioFeatures
}

func (f *fakeFeatureService) FeaturesFor(ctx context.Context, audioID string) (*models.AudioFeatures, error) {
	if feat, ok := f.features[audioID]; ok {
		return feat, nil
	}
	return nil, utils.E(utils.CodeNotFound, "fakeFeatureService.FeaturesFor", "unknown recording", utils.ErrNotFound)
}

func (f *fakeFeatureService) ClipFor(ctx context.Context, audioID string) (*audio.Clip, error) {
	return nil, utils.E(utils.CodeNotFound, "fakeFeatureService.ClipFor", "unknown recording", utils.ErrNotFound)
}

// suitableFeatures builds a clean, identification-suitable feature set whose
// signature is fully determined by its literals.
func suitableFeatures(audioID string) *models.AudioFeatures {
	frame := make([]float64, 13)
	for i := range frame {
		frame[i] = 1.5 + float64(i)*0.2
	}
	return &models.AudioFeatures{
		AudioID:  audioID,
		Duration: 12,
		MFCC:     models.MFCCFeatures{Coefficients: [][]float64{frame, frame}, NumCoefficients: 13},
		Spectral: models.SpectralFeatures{Centroid: []float64{1200}},
		Prosodic: models.ProsodicFeatures{PitchMean: 150, PitchStd: 20, SpeechRate: 4, Jitter: 0.01, Shimmer: 0.04, HNR: 15},
		Quality:  models.QualityMetrics{SNR: 25, ClippingRatio: 0.01, SilenceRatio: 0.2, QualityScore: 0.9},
	}
}

func exportFixture(profileID string) *models.ProfileExport {
	return &models.ProfileExport{
		ProfileID:         profileID,
		DisplayName:       "Alex Moreau",
		Role:              models.RoleWitness,
		VoiceSignature:    engine.Signature(suitableFeatures("sample-1")),
		EnrollmentSamples: []string{"sample-1", "sample-2"},
		EnrollmentDate:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		GenderEstimate:    "unknown",
		AgeRangeEstimate:  "young_adult",
		CaseID:            "case-7",
		Notes:             "enrolled from hearing recordings",
	}
}

func TestProfileExportImportRoundTrip(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := NewSpeakerService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Import(ctx, exportFixture("profile-1")); err != nil {
		t.Fatalf("Import: %v", err)
	}
	first, err := svc.Export(ctx, "profile-1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := svc.Import(ctx, first); err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	second, err := svc.Export(ctx, "profile-1")
	if err != nil {
		t.Fatalf("re-Export: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("export/import round trip drifted:\nfirst  %+v\nsecond %+v", first, second)
	}
	if len(repo.profiles) != 1 {
		t.Errorf("import is an upsert; stored profiles = %d, want 1", len(repo.profiles))
	}
}

func TestImportValidation(t *testing.T) {
	svc := NewSpeakerService(newFakeProfileRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Import(ctx, nil); err == nil {
		t.Error("nil export must fail")
	}
	exp := exportFixture("profile-1")
	exp.VoiceSignature = models.CompactSignature{}
	if _, err := svc.Import(ctx, exp); err == nil {
		t.Error("export without a voice signature must fail")
	}
}

func TestIdentifyPreRanksOpenRegistryByEmbedding(t *testing.T) {
	repo := newFakeProfileRepo()
	features := &fakeFeatureService{features: map[string]*models.AudioFeatures{
		"query-audio": suitableFeatures("query-audio"),
	}}
	svc := NewSpeakerService(repo, features)
	ctx := context.Background()

	if _, err := svc.Import(ctx, exportFixture("profile-1")); err != nil {
		t.Fatalf("Import: %v", err)
	}

	res, err := svc.Identify(ctx, "query-audio", "")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if repo.nearestCalls != 1 {
		t.Errorf("open-registry identify made %d nearest-neighbor queries, want 1", repo.nearestCalls)
	}
	if repo.listCalls != 0 {
		t.Error("open-registry identify must not scan the full profile list")
	}
	if !res.Known || res.BestMatch == nil || res.BestMatch.ProfileID != "profile-1" {
		t.Fatalf("query identical to the enrolled voice must match: %+v", res)
	}
	if p, _ := repo.GetByProfileID(ctx, "profile-1"); p.IdentificationCount != 1 {
		t.Errorf("identification count = %d, want 1", p.IdentificationCount)
	}

	if _, err := svc.Identify(ctx, "query-audio", "case-7"); err != nil {
		t.Fatalf("case-scoped Identify: %v", err)
	}
	if repo.caseCalls != 1 || repo.nearestCalls != 1 {
		t.Error("case-scoped identify must stay an exhaustive case scan")
	}
}
