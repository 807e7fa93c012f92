package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehab-triage-engine/internal/domain"
)

func TestProtocolKey(t *testing.T) {
	resolver := NewProtocolPhaseResolver(testLogger())

	tests := []struct {
		name   string
		postOp domain.PostOpRecord
		want   string
	}{
		{
			name: "region and surgery type lowercased",
			postOp: domain.PostOpRecord{
				PostOpRegion: "Knee",
				SurgeryType:  "acl_reconstruction",
			},
			want: "knee_acl_reconstruction",
		},
		{
			name: "slash in region becomes underscore",
			postOp: domain.PostOpRecord{
				PostOpRegion: "Foot/Ankle",
				SurgeryType:  "fusion",
			},
			want: "foot_ankle_fusion",
		},
		{
			name: "grade suffix for ligament repair",
			postOp: domain.PostOpRecord{
				PostOpRegion:      "Ankle",
				SurgeryType:       "ligament_repair",
				ProcedureModifier: "Grade 2 tear",
			},
			want: "ankle_ligament_repair_grade2",
		},
		{
			name: "modifier ignored for other surgery types",
			postOp: domain.PostOpRecord{
				PostOpRegion:      "Knee",
				SurgeryType:       "acl_reconstruction",
				ProcedureModifier: "Grade 3 tear",
			},
			want: "knee_acl_reconstruction",
		},
		{
			name: "ligament repair without a parseable grade",
			postOp: domain.PostOpRecord{
				PostOpRegion:      "Ankle",
				SurgeryType:       "ligament_repair",
				ProcedureModifier: "partial tear",
			},
			want: "ankle_ligament_repair",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.ProtocolKey(&tt.postOp))
		})
	}
}

func TestNominalPhase(t *testing.T) {
	resolver := NewProtocolPhaseResolver(testLogger())

	tests := []struct {
		weeks string
		want  int
	}{
		{"0-2 weeks", 1},
		{"2-6 weeks", 2},
		{"6-12 weeks", 3},
		{"12+ weeks", 4},
		{"", 1},
		{"unknown bucket", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolver.NominalPhase(tt.weeks), "weeks %q", tt.weeks)
	}
}

func TestSafetyGates(t *testing.T) {
	resolver := NewProtocolPhaseResolver(testLogger())

	tests := []struct {
		name       string
		assessment domain.AssessmentRecord
		postOp     domain.PostOpRecord
		wantPhase  int
	}{
		{
			name:       "severe pain clamps late rehab to phase 1",
			assessment: domain.AssessmentRecord{PainLevel: 8},
			postOp: domain.PostOpRecord{
				SurgeryStatus:     domain.SurgeryPostOp,
				PostOpRegion:      "Knee",
				SurgeryType:       "acl_reconstruction",
				WeeksSinceSurgery: "12+ weeks",
			},
			wantPhase: 1,
		},
		{
			name:       "non-weight-bearing clamps phase 3 to 2",
			assessment: domain.AssessmentRecord{PainLevel: 3},
			postOp: domain.PostOpRecord{
				SurgeryStatus:       domain.SurgeryPostOp,
				PostOpRegion:        "Knee",
				SurgeryType:         "acl_reconstruction",
				WeeksSinceSurgery:   "6-12 weeks",
				WeightBearingStatus: "Non-weight-bearing (NWB)",
			},
			wantPhase: 2,
		},
		{
			name: "swelling clamps phase 4 to 2",
			assessment: domain.AssessmentRecord{
				PainLevel:          3,
				AdditionalSymptoms: []string{"Swelling around the joint"},
			},
			postOp: domain.PostOpRecord{
				SurgeryStatus:     domain.SurgeryPostOp,
				PostOpRegion:      "Knee",
				SurgeryType:       "acl_reconstruction",
				WeeksSinceSurgery: "12+ weeks",
			},
			wantPhase: 2,
		},
		{
			name: "multiple gates resolve to the minimum",
			assessment: domain.AssessmentRecord{
				PainLevel:          7,
				AdditionalSymptoms: []string{"Muscle weakness"},
			},
			postOp: domain.PostOpRecord{
				SurgeryStatus:       domain.SurgeryPostOp,
				PostOpRegion:        "Knee",
				SurgeryType:         "acl_reconstruction",
				WeeksSinceSurgery:   "12+ weeks",
				WeightBearingStatus: "Non-weight-bearing (NWB)",
			},
			wantPhase: 1,
		},
		{
			name:       "no gates leaves nominal phase",
			assessment: domain.AssessmentRecord{PainLevel: 2},
			postOp: domain.PostOpRecord{
				SurgeryStatus:     domain.SurgeryPostOp,
				PostOpRegion:      "Knee",
				SurgeryType:       "acl_reconstruction",
				WeeksSinceSurgery: "6-12 weeks",
			},
			wantPhase: 3,
		},
		{
			name:       "gates never raise an early phase",
			assessment: domain.AssessmentRecord{PainLevel: 2},
			postOp: domain.PostOpRecord{
				SurgeryStatus:       domain.SurgeryPostOp,
				PostOpRegion:        "Knee",
				SurgeryType:         "acl_reconstruction",
				WeeksSinceSurgery:   "0-2 weeks",
				WeightBearingStatus: "Non-weight-bearing (NWB)",
			},
			wantPhase: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver.Resolve(&tt.assessment, &tt.postOp)
			assert.Equal(t, tt.wantPhase, tt.postOp.PhaseNumber)
		})
	}
}

func TestResolveSkipsNonPostOp(t *testing.T) {
	resolver := NewProtocolPhaseResolver(testLogger())

	postOp := domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone}
	resolver.Resolve(&domain.AssessmentRecord{PainLevel: 9}, &postOp)

	assert.Empty(t, postOp.ProtocolKey)
	assert.Zero(t, postOp.PhaseNumber)
}
