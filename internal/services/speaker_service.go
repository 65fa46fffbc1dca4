package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/models"
	pgrepo "github.com/veridict/voicelab/internal/repositories/postgres"
	"github.com/veridict/voicelab/internal/utils"
)

// EnrollRequest describes one enrollment: who the speaker is and which
// ingested recordings are their voice samples.
type EnrollRequest struct {
	DisplayName    string             `json:"display_name"`
	Role           models.SpeakerRole `json:"role"`
	CaseID         string             `json:"case_id"`
	Notes          string             `json:"notes"`
	SampleAudioIDs []string           `json:"sample_audio_ids"`
}

type SpeakerService interface {
	Enroll(ctx context.Context, req EnrollRequest) (*models.SpeakerProfile, []string, error)
	Identify(ctx context.Context, audioID, caseID string) (*models.IdentificationResult, error)
	Verify(ctx context.Context, audioID, profileID string) (*models.VerificationResult, error)

	Get(ctx context.Context, profileID string) (*models.SpeakerProfile, error)
	List(ctx context.Context, caseID string) ([]models.SpeakerProfile, error)
	Delete(ctx context.Context, profileID string) error

	Export(ctx context.Context, profileID string) (*models.ProfileExport, error)
	Import(ctx context.Context, exp *models.ProfileExport) (*models.SpeakerProfile, error)
}

// nearestCandidateLimit caps how many embedding-nearest profiles are scored
// when an identification is not scoped to a case.
const nearestCandidateLimit = 25

type speakerService struct {
	profiles pgrepo.SpeakerProfileRepository
	features FeatureService

	// statsMu serializes identification statistics updates: the profile
	// registry has a single logical writer even under concurrent requests.
	statsMu sync.Mutex
}

func NewSpeakerService(profiles pgrepo.SpeakerProfileRepository, features FeatureService) SpeakerService {
	return &speakerService{profiles: profiles, features: features}
}

func (s *speakerService) Enroll(ctx context.Context, req EnrollRequest) (*models.SpeakerProfile, []string, error) {
	const op = "SpeakerService.Enroll"

	if req.DisplayName == "" || len(req.SampleAudioIDs) == 0 {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "display_name and sample_audio_ids are required", nil)
	}

	samples := make([]engine.EnrollmentSample, 0, len(req.SampleAudioIDs))
	for _, audioID := range req.SampleAudioIDs {
		f, err := s.features.FeaturesFor(ctx, audioID)
		if err != nil {
			return nil, nil, err
		}
		_, issues := engine.SuitableForIdentification(f)
		samples = append(samples, engine.EnrollmentSample{
			AudioID:   audioID,
			Signature: engine.Signature(f),
			Quality:   f.Quality.QualityScore,
			Issues:    issues,
		})
	}

	enrollment, err := engine.BuildEnrollment(samples)
	if err != nil {
		return nil, nil, err
	}

	profile := &models.SpeakerProfile{
		ProfileID:         uuid.NewString(),
		DisplayName:       req.DisplayName,
		Role:              req.Role,
		EnrollmentSamples: enrollment.SampleIDs,
		EnrollmentDate:    time.Now().UTC(),
		GenderEstimate:    enrollment.GenderEstimate,
		AgeRangeEstimate:  enrollment.AgeRangeEstimate,
		CaseID:            req.CaseID,
		Notes:             req.Notes,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := setSignature(profile, enrollment.Signature); err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to encode signature", err)
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to persist profile", err)
	}
	return profile, enrollment.Warnings, nil
}

func setSignature(p *models.SpeakerProfile, sig models.CompactSignature) error {
	raw, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	p.VoiceSignature = raw
	p.SignatureEmbedding = signatureEmbedding(sig)
	return nil
}

// signatureEmbedding projects a signature onto the pgvector column used for
// candidate pre-ranking. Scoring always goes through the full signature.
func signatureEmbedding(sig models.CompactSignature) pgvector.Vector {
	embedding := make([]float32, len(sig.MFCCMean))
	for i, v := range sig.MFCCMean {
		embedding[i] = float32(v)
	}
	return pgvector.NewVector(embedding)
}

func profileSignature(p *models.SpeakerProfile) (models.CompactSignature, error) {
	var sig models.CompactSignature
	err := json.Unmarshal(p.VoiceSignature, &sig)
	return sig, err
}

func (s *speakerService) Identify(ctx context.Context, audioID, caseID string) (*models.IdentificationResult, error) {
	const op = "SpeakerService.Identify"

	f, err := s.features.FeaturesFor(ctx, audioID)
	if err != nil {
		return nil, err
	}
	_, warnings := engine.SuitableForIdentification(f)
	probe := engine.Signature(f)

	// Case-scoped identification stays exhaustive; against the open registry
	// the candidates are pre-ranked by embedding distance so matching never
	// scans every enrolled profile.
	var profiles []models.SpeakerProfile
	if caseID != "" {
		profiles, err = s.profiles.ListByCase(ctx, caseID)
	} else {
		profiles, err = s.profiles.NearestByEmbedding(ctx, signatureEmbedding(probe), nearestCandidateLimit)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load candidate profiles", err)
	}

	candidates := make([]engine.ProfileCandidate, 0, len(profiles))
	for i := range profiles {
		sig, err := profileSignature(&profiles[i])
		if err != nil {
			continue
		}
		candidates = append(candidates, engine.ProfileCandidate{
			ProfileID:   profiles[i].ProfileID,
			DisplayName: profiles[i].DisplayName,
			Signature:   sig,
		})
	}

	result := engine.Identify(audioID, probe, candidates, warnings)

	if result.BestMatch != nil {
		if err := s.recordIdentification(ctx, result.BestMatch); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// recordIdentification updates the matched profile's running statistics under
// the single-writer lock, re-reading inside the critical section so two
// concurrent matches cannot lose an update.
func (s *speakerService) recordIdentification(ctx context.Context, match *models.SpeakerMatch) error {
	const op = "SpeakerService.recordIdentification"

	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	p, err := s.profiles.GetByProfileID(ctx, match.ProfileID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to reload profile", err)
	}
	count := p.IdentificationCount + 1
	avg := p.AvgMatchConfidence + (match.Similarity-p.AvgMatchConfidence)/float64(count)
	if err := s.profiles.UpdateStats(ctx, p.ProfileID, count, avg); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update profile statistics", err)
	}
	return nil
}

func (s *speakerService) loadProfiles(ctx context.Context, caseID string) ([]models.SpeakerProfile, error) {
	if caseID != "" {
		return s.profiles.ListByCase(ctx, caseID)
	}
	return s.profiles.List(ctx)
}

func (s *speakerService) Verify(ctx context.Context, audioID, profileID string) (*models.VerificationResult, error) {
	const op = "SpeakerService.Verify"

	p, err := s.profiles.GetByProfileID(ctx, profileID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "claimed profile does not exist", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load profile", err)
	}
	enrolled, err := profileSignature(p)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "stored signature is unreadable", err)
	}

	f, err := s.features.FeaturesFor(ctx, audioID)
	if err != nil {
		return nil, err
	}
	_, warnings := engine.SuitableForIdentification(f)

	return engine.Verify(audioID, profileID, engine.Signature(f), enrolled, warnings), nil
}

func (s *speakerService) Get(ctx context.Context, profileID string) (*models.SpeakerProfile, error) {
	const op = "SpeakerService.Get"

	if profileID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "profile_id is required", nil)
	}
	p, err := s.profiles.GetByProfileID(ctx, profileID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get profile", err)
	}
	return p, nil
}

func (s *speakerService) List(ctx context.Context, caseID string) ([]models.SpeakerProfile, error) {
	const op = "SpeakerService.List"

	out, err := s.loadProfiles(ctx, caseID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list profiles", err)
	}
	return out, nil
}

func (s *speakerService) Delete(ctx context.Context, profileID string) error {
	const op = "SpeakerService.Delete"

	if err := s.profiles.Delete(ctx, profileID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "profile not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete profile", err)
	}
	return nil
}

func (s *speakerService) Export(ctx context.Context, profileID string) (*models.ProfileExport, error) {
	const op = "SpeakerService.Export"

	p, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	sig, err := profileSignature(p)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "stored signature is unreadable", err)
	}
	return &models.ProfileExport{
		ProfileID:         p.ProfileID,
		DisplayName:       p.DisplayName,
		Role:              p.Role,
		VoiceSignature:    sig,
		EnrollmentSamples: p.EnrollmentSamples,
		EnrollmentDate:    p.EnrollmentDate,
		GenderEstimate:    p.GenderEstimate,
		AgeRangeEstimate:  p.AgeRangeEstimate,
		CaseID:            p.CaseID,
		Notes:             p.Notes,
	}, nil
}

// Import upserts an exported profile. Importing the same export twice is
// idempotent: the profile_id is the conflict key.
func (s *speakerService) Import(ctx context.Context, exp *models.ProfileExport) (*models.SpeakerProfile, error) {
	const op = "SpeakerService.Import"

	if exp == nil || exp.ProfileID == "" || exp.DisplayName == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "profile_id and display_name are required", nil)
	}
	if len(exp.VoiceSignature.MFCCMean) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "voice_signature is required", nil)
	}

	profile := &models.SpeakerProfile{
		ProfileID:         exp.ProfileID,
		DisplayName:       exp.DisplayName,
		Role:              exp.Role,
		EnrollmentSamples: exp.EnrollmentSamples,
		EnrollmentDate:    exp.EnrollmentDate,
		GenderEstimate:    exp.GenderEstimate,
		AgeRangeEstimate:  exp.AgeRangeEstimate,
		CaseID:            exp.CaseID,
		Notes:             exp.Notes,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := setSignature(profile, exp.VoiceSignature); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode signature", err)
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist profile", err)
	}
	return profile, nil
}
