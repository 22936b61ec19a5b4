package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	"github.com/villagefreeschool/adminportal-sub001/internal/tuition"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
	"github.com/villagefreeschool/adminportal-sub001/pkg/export"
)

type contractRepository interface {
	FindByID(ctx context.Context, id string) (*models.Contract, error)
	FindByFamilyAndYear(ctx context.Context, familyID, yearID string) (*models.Contract, error)
	Create(ctx context.Context, contract *models.Contract) error
	UpdateTuition(ctx context.Context, contract *models.Contract) error
	SetSigned(ctx context.Context, id string, signed bool) error
	ListDecisions(ctx context.Context, contractID string) ([]models.StudentDecision, error)
	ReplaceDecisions(ctx context.Context, contractID string, decisions []models.StudentDecision) error
	ListSignatures(ctx context.Context, contractID string) ([]models.Signature, error)
	AddSignature(ctx context.Context, sig *models.Signature) error
}

type contractYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.Year, error)
	FindPrevious(ctx context.Context, year *models.Year) (*models.Year, error)
}

type contractFamilyRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.FamilyDetail, error)
}

// DecisionInput is one student's enrollment choice in an update payload.
type DecisionInput struct {
	StudentID string                    `json:"student_id" validate:"required"`
	Decision  models.EnrollmentDecision `json:"decision" validate:"required,oneof=NONE PART_TIME FULL_TIME"`
}

// UpdateDecisionsRequest replaces the decision set on a contract.
type UpdateDecisionsRequest struct {
	Decisions []DecisionInput `json:"decisions" validate:"required,dive"`
}

// SetTuitionRequest records the family's chosen tuition figure.
type SetTuitionRequest struct {
	Tuition             float64 `json:"tuition" validate:"gte=0"`
	AssistanceRequested bool    `json:"assistance_requested"`
	AssistanceGranted   bool    `json:"assistance_granted"`
}

// SignRequest records a guardian's signature.
type SignRequest struct {
	GuardianID string `json:"guardian_id" validate:"required"`
	Signature  string `json:"signature" validate:"required"`
}

// ContractService implements the enrollment contract workflow: one
// contract per family per year, decision edits, tuition selection with
// the sliding-scale preview, and guardian signatures.
type ContractService struct {
	contracts  contractRepository
	years      contractYearRepository
	families   contractFamilyRepository
	policy     tuition.Policy
	renderer   *export.PDFExporter
	schoolName string
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewContractService constructs the contract service.
func NewContractService(contracts contractRepository, years contractYearRepository, families contractFamilyRepository, policy tuition.Policy, schoolName string, validate *validator.Validate, logger *zap.Logger) *ContractService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContractService{
		contracts:  contracts,
		years:      years,
		families:   families,
		policy:     policy,
		renderer:   export.NewPDFExporter(),
		schoolName: schoolName,
		validator:  validate,
		logger:     logger,
	}
}

// GetOrCreate returns the contract for a (family, year) pair, creating
// an empty one on first access. Concurrent first edits race on the
// unique index; the loser re-reads the winner's row.
func (s *ContractService) GetOrCreate(ctx context.Context, familyID, yearID string) (*models.ContractDetail, error) {
	if _, err := s.families.FindDetailByID(ctx, familyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	if _, err := s.years.FindByID(ctx, yearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}

	contract, err := s.contracts.FindByFamilyAndYear(ctx, familyID, yearID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract")
		}
		created := &models.Contract{FamilyID: familyID, YearID: yearID}
		if createErr := s.contracts.Create(ctx, created); createErr != nil {
			contract, err = s.contracts.FindByFamilyAndYear(ctx, familyID, yearID)
			if err != nil {
				return nil, appErrors.Wrap(createErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contract")
			}
		} else {
			contract = created
		}
	}
	return s.detail(ctx, contract)
}

// Get returns a contract with its decisions and signatures.
func (s *ContractService) Get(ctx context.Context, id string) (*models.ContractDetail, error) {
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, contract)
}

// UpdateDecisions replaces the per-student enrollment decisions.
func (s *ContractService) UpdateDecisions(ctx context.Context, id string, req UpdateDecisionsRequest) (*models.ContractDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decisions payload")
	}
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, contract); err != nil {
		return nil, err
	}

	family, err := s.families.FindDetailByID(ctx, contract.FamilyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	members := make(map[string]bool, len(family.Students))
	for _, st := range family.Students {
		members[st.ID] = true
	}

	decisions := make([]models.StudentDecision, 0, len(req.Decisions))
	seen := make(map[string]bool, len(req.Decisions))
	for _, d := range req.Decisions {
		if !members[d.StudentID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student does not belong to the contract family")
		}
		if seen[d.StudentID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate decision for student")
		}
		seen[d.StudentID] = true
		decisions = append(decisions, models.StudentDecision{StudentID: d.StudentID, Decision: d.Decision})
	}

	if err := s.contracts.ReplaceDecisions(ctx, id, decisions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save decisions")
	}
	return s.Get(ctx, id)
}

// SetTuition records the family's chosen tuition. The assistance amount
// is derived from the calculator's minimum so choosing below the floor
// books the gap as assistance.
func (s *ContractService) SetTuition(ctx context.Context, id string, req SetTuitionRequest) (*models.ContractDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tuition payload")
	}
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, contract); err != nil {
		return nil, err
	}

	result, err := s.preview(ctx, contract)
	if err != nil {
		return nil, err
	}

	contract.Tuition = req.Tuition
	contract.AssistanceAmount = tuition.AssistanceAmount(req.Tuition, result.MinimumTuition)
	contract.AssistanceRequested = req.AssistanceRequested
	contract.AssistanceGranted = req.AssistanceGranted
	if err := s.contracts.UpdateTuition(ctx, contract); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save tuition")
	}
	return s.Get(ctx, id)
}

// Sign records a guardian's signature. Once every guardian on the
// family has signed, the contract locks.
func (s *ContractService) Sign(ctx context.Context, id string, req SignRequest) (*models.ContractDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signature payload")
	}
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.IsSigned {
		return nil, appErrors.Clone(appErrors.ErrContractSigned, "contract is already fully signed")
	}

	family, err := s.families.FindDetailByID(ctx, contract.FamilyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	var guardian *models.Guardian
	for i := range family.Guardians {
		if family.Guardians[i].ID == req.GuardianID {
			guardian = &family.Guardians[i]
			break
		}
	}
	if guardian == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "guardian does not belong to the contract family")
	}

	if err := s.contracts.AddSignature(ctx, &models.Signature{
		ContractID: id,
		GuardianID: req.GuardianID,
		Signature:  req.Signature,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record signature")
	}

	signatures, err := s.contracts.ListSignatures(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list signatures")
	}
	signed := make(map[string]bool, len(signatures))
	for _, sig := range signatures {
		signed[sig.GuardianID] = true
	}
	complete := len(family.Guardians) > 0
	for _, g := range family.Guardians {
		if !signed[g.ID] {
			complete = false
			break
		}
	}
	if complete {
		if err := s.contracts.SetSigned(ctx, id, true); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock contract")
		}
	}
	return s.Get(ctx, id)
}

// Document renders the printable contract PDF for the family.
func (s *ContractService) Document(ctx context.Context, id string) ([]byte, error) {
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	year, err := s.years.FindByID(ctx, contract.YearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}
	family, err := s.families.FindDetailByID(ctx, contract.FamilyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	decisions, err := s.contracts.ListDecisions(ctx, contract.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load decisions")
	}
	signatures, err := s.contracts.ListSignatures(ctx, contract.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signatures")
	}

	names := make(map[string]string, len(family.Students))
	for _, st := range family.Students {
		names[st.ID] = st.FullName
	}
	guardianNames := make(map[string]string, len(family.Guardians))
	for _, g := range family.Guardians {
		guardianNames[g.ID] = g.FullName
	}

	doc := export.ContractDocument{
		SchoolName:  s.schoolName,
		YearName:    year.Name,
		FamilyName:  family.Name,
		Tuition:     contract.Tuition,
		Assistance:  contract.AssistanceAmount,
		GeneratedAt: time.Now().UTC().Format("January 2, 2006"),
	}
	if !contract.IsSigned {
		doc.FooterNotice = "Draft - pending guardian signatures"
	}
	for _, d := range decisions {
		if !d.Decision.Attending() {
			continue
		}
		doc.Students = append(doc.Students, export.ContractStudentLine{
			Name:     names[d.StudentID],
			Decision: d.Decision.Label(),
		})
	}
	for _, sig := range signatures {
		doc.Signatures = append(doc.Signatures, export.ContractSignatureLine{
			GuardianName: guardianNames[sig.GuardianID],
			SignedAt:     sig.SignedAt.Format("January 2, 2006"),
		})
	}

	out, err := s.renderer.RenderContract(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render contract document")
	}
	return out, nil
}

// Preview runs the sliding-scale calculator against the contract's
// current decisions without persisting anything.
func (s *ContractService) Preview(ctx context.Context, id string) (*tuition.Result, error) {
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.preview(ctx, contract)
}

func (s *ContractService) preview(ctx context.Context, contract *models.Contract) (*tuition.Result, error) {
	year, err := s.years.FindByID(ctx, contract.YearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}
	family, err := s.families.FindDetailByID(ctx, contract.FamilyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	decisions, err := s.contracts.ListDecisions(ctx, contract.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load decisions")
	}

	in := tuition.Input{
		GrossIncome:    family.GrossIncome,
		MinimumIncome:  year.MinimumIncome,
		MaximumIncome:  year.MaximumIncome,
		MinimumTuition: year.MinimumTuition,
		MaximumTuition: year.MaximumTuition,
	}
	attending := 0
	for _, d := range decisions {
		switch d.Decision {
		case models.DecisionFullTime:
			in.FullTime++
			attending++
		case models.DecisionPartTime:
			in.PartTime++
			attending++
		}
	}
	if attending > 1 {
		in.Siblings = attending - 1
	}

	prior, priorDecisions, err := s.priorContract(ctx, contract, year)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		in.PriorTuition = &prior.Tuition
		in.DecisionsUnchanged = decisionsMatch(priorDecisions, decisions)
	}

	result := tuition.Calculate(in, s.policy)
	return &result, nil
}

// priorContract finds the family's contract on the previous school
// year, if both exist.
func (s *ContractService) priorContract(ctx context.Context, contract *models.Contract, year *models.Year) (*models.Contract, []models.StudentDecision, error) {
	prevYear, err := s.years.FindPrevious(ctx, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous year")
	}
	prior, err := s.contracts.FindByFamilyAndYear(ctx, contract.FamilyID, prevYear.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prior contract")
	}
	priorDecisions, err := s.contracts.ListDecisions(ctx, prior.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prior decisions")
	}
	return prior, priorDecisions, nil
}

func (s *ContractService) loadContract(ctx context.Context, id string) (*models.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contract not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract")
	}
	return contract, nil
}

// ensureEditable rejects edits on signed contracts and on years closed
// to registration changes.
func (s *ContractService) ensureEditable(ctx context.Context, contract *models.Contract) error {
	if contract.IsSigned {
		return appErrors.Clone(appErrors.ErrContractSigned, "contract is signed and locked")
	}
	year, err := s.years.FindByID(ctx, contract.YearID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}
	if !year.IsAcceptingRegistrations {
		return appErrors.Clone(appErrors.ErrYearClosed, "year is not accepting registration changes")
	}
	return nil
}

func (s *ContractService) detail(ctx context.Context, contract *models.Contract) (*models.ContractDetail, error) {
	decisions, err := s.contracts.ListDecisions(ctx, contract.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load decisions")
	}
	signatures, err := s.contracts.ListSignatures(ctx, contract.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signatures")
	}
	return &models.ContractDetail{Contract: *contract, Decisions: decisions, Signatures: signatures}, nil
}

// decisionsMatch compares the attending portion of two decision sets.
// Students marked NONE are treated the same as absent rows.
func decisionsMatch(prior, current []models.StudentDecision) bool {
	norm := func(set []models.StudentDecision) map[string]models.EnrollmentDecision {
		out := make(map[string]models.EnrollmentDecision, len(set))
		for _, d := range set {
			if d.Decision.Attending() {
				out[d.StudentID] = d.Decision
			}
		}
		return out
	}
	a, b := norm(prior), norm(current)
	if len(a) != len(b) {
		return false
	}
	for id, d := range a {
		if b[id] != d {
			return false
		}
	}
	return true
}
