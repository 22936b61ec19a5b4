package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	"github.com/villagefreeschool/adminportal-sub001/internal/tuition"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
)

type fakeContractRepo struct {
	contracts  map[string]*models.Contract
	decisions  map[string][]models.StudentDecision
	signatures map[string][]models.Signature
	created    int
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{
		contracts:  make(map[string]*models.Contract),
		decisions:  make(map[string][]models.StudentDecision),
		signatures: make(map[string][]models.Signature),
	}
}

func (f *fakeContractRepo) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (f *fakeContractRepo) FindByFamilyAndYear(ctx context.Context, familyID, yearID string) (*models.Contract, error) {
	for _, c := range f.contracts {
		if c.FamilyID == familyID && c.YearID == yearID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeContractRepo) Create(ctx context.Context, contract *models.Contract) error {
	if contract.ID == "" {
		contract.ID = "con-new"
	}
	f.created++
	copied := *contract
	f.contracts[contract.ID] = &copied
	return nil
}

func (f *fakeContractRepo) UpdateTuition(ctx context.Context, contract *models.Contract) error {
	stored, ok := f.contracts[contract.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.Tuition = contract.Tuition
	stored.AssistanceAmount = contract.AssistanceAmount
	stored.AssistanceRequested = contract.AssistanceRequested
	stored.AssistanceGranted = contract.AssistanceGranted
	return nil
}

func (f *fakeContractRepo) SetSigned(ctx context.Context, id string, signed bool) error {
	stored, ok := f.contracts[id]
	if !ok {
		return sql.ErrNoRows
	}
	stored.IsSigned = signed
	return nil
}

func (f *fakeContractRepo) ListDecisions(ctx context.Context, contractID string) ([]models.StudentDecision, error) {
	return f.decisions[contractID], nil
}

func (f *fakeContractRepo) ReplaceDecisions(ctx context.Context, contractID string, decisions []models.StudentDecision) error {
	f.decisions[contractID] = decisions
	return nil
}

func (f *fakeContractRepo) ListSignatures(ctx context.Context, contractID string) ([]models.Signature, error) {
	return f.signatures[contractID], nil
}

func (f *fakeContractRepo) AddSignature(ctx context.Context, sig *models.Signature) error {
	for i, existing := range f.signatures[sig.ContractID] {
		if existing.GuardianID == sig.GuardianID {
			f.signatures[sig.ContractID][i] = *sig
			return nil
		}
	}
	f.signatures[sig.ContractID] = append(f.signatures[sig.ContractID], *sig)
	return nil
}

type fakeYearRepo struct {
	years map[string]*models.Year
	order []string
}

func (f *fakeYearRepo) FindByID(ctx context.Context, id string) (*models.Year, error) {
	y, ok := f.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *y
	return &copied, nil
}

func (f *fakeYearRepo) FindPrevious(ctx context.Context, year *models.Year) (*models.Year, error) {
	var best *models.Year
	for _, y := range f.years {
		if y.Name < year.Name && (best == nil || y.Name > best.Name) {
			best = y
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	copied := *best
	return &copied, nil
}

type fakeFamilyRepo struct {
	detail *models.FamilyDetail
}

func (f *fakeFamilyRepo) FindDetailByID(ctx context.Context, id string) (*models.FamilyDetail, error) {
	if f.detail == nil || f.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *f.detail
	return &copied, nil
}

func testYear() *models.Year {
	return &models.Year{
		ID:                       "year-2",
		Name:                     "2026-2027",
		MinimumIncome:            20000,
		MaximumIncome:            100000,
		MinimumTuition:           2000,
		MaximumTuition:           10000,
		IsAcceptingRegistrations: true,
	}
}

func testFamily(income float64) *models.FamilyDetail {
	return &models.FamilyDetail{
		Family: models.Family{ID: "fam-1", Name: "Alvarez", GrossIncome: &income},
		Guardians: []models.Guardian{
			{ID: "grd-1", FamilyID: "fam-1", FullName: "Maria Alvarez"},
			{ID: "grd-2", FamilyID: "fam-1", FullName: "Jose Alvarez"},
		},
		Students: []models.Student{
			{ID: "stu-1", FamilyID: "fam-1", FullName: "Leo Alvarez"},
			{ID: "stu-2", FamilyID: "fam-1", FullName: "Mia Alvarez"},
		},
	}
}

func newContractServiceForTest(contracts *fakeContractRepo, years *fakeYearRepo, family *models.FamilyDetail) *ContractService {
	return NewContractService(contracts, years, &fakeFamilyRepo{detail: family}, tuition.DefaultPolicy(), "Village Free School", validator.New(), zap.NewNop())
}

func TestContractServiceGetOrCreateCreatesOnce(t *testing.T) {
	contracts := newFakeContractRepo()
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	first, err := svc.GetOrCreate(context.Background(), "fam-1", "year-2")
	require.NoError(t, err)
	second, err := svc.GetOrCreate(context.Background(), "fam-1", "year-2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, contracts.created)
}

func TestContractServiceGetOrCreateUnknownFamily(t *testing.T) {
	contracts := newFakeContractRepo()
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	_, err := svc.GetOrCreate(context.Background(), "fam-missing", "year-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestContractServiceUpdateDecisions(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	detail, err := svc.UpdateDecisions(context.Background(), "con-1", UpdateDecisionsRequest{
		Decisions: []DecisionInput{
			{StudentID: "stu-1", Decision: models.DecisionFullTime},
			{StudentID: "stu-2", Decision: models.DecisionPartTime},
		},
	})
	require.NoError(t, err)
	assert.Len(t, detail.Decisions, 2)
}

func TestContractServiceUpdateDecisionsRejectsForeignStudent(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	_, err := svc.UpdateDecisions(context.Background(), "con-1", UpdateDecisionsRequest{
		Decisions: []DecisionInput{{StudentID: "stu-elsewhere", Decision: models.DecisionFullTime}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContractServiceUpdateDecisionsSignedContract(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2", IsSigned: true}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	_, err := svc.UpdateDecisions(context.Background(), "con-1", UpdateDecisionsRequest{
		Decisions: []DecisionInput{{StudentID: "stu-1", Decision: models.DecisionFullTime}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrContractSigned.Code, appErrors.FromError(err).Code)
}

func TestContractServiceUpdateDecisionsClosedYear(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	closed := testYear()
	closed.IsAcceptingRegistrations = false
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": closed}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	_, err := svc.UpdateDecisions(context.Background(), "con-1", UpdateDecisionsRequest{
		Decisions: []DecisionInput{{StudentID: "stu-1", Decision: models.DecisionFullTime}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrYearClosed.Code, appErrors.FromError(err).Code)
}

func TestContractServicePreviewMidpoint(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	contracts.decisions["con-1"] = []models.StudentDecision{
		{ContractID: "con-1", StudentID: "stu-1", Decision: models.DecisionFullTime},
	}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	result, err := svc.Preview(context.Background(), "con-1")
	require.NoError(t, err)
	assert.InDelta(t, 6000, result.SuggestedTuition, 0.001)
}

func TestContractServicePreviewAppliesPriorYearBand(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-prior"] = &models.Contract{ID: "con-prior", FamilyID: "fam-1", YearID: "year-1", Tuition: 5000}
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	decisions := []models.StudentDecision{{StudentID: "stu-1", Decision: models.DecisionFullTime}}
	contracts.decisions["con-prior"] = decisions
	contracts.decisions["con-1"] = decisions

	prior := testYear()
	prior.ID = "year-1"
	prior.Name = "2025-2026"
	years := &fakeYearRepo{years: map[string]*models.Year{"year-1": prior, "year-2": testYear()}}

	// Income at the top of the scale would suggest 10000, but the prior
	// contract at 5000 caps movement at ten percent.
	svc := newContractServiceForTest(contracts, years, testFamily(100000))

	result, err := svc.Preview(context.Background(), "con-1")
	require.NoError(t, err)
	assert.InDelta(t, 5500, result.SuggestedTuition, 0.001)
}

func TestContractServicePreviewChangedDecisionsSkipBand(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-prior"] = &models.Contract{ID: "con-prior", FamilyID: "fam-1", YearID: "year-1", Tuition: 5000}
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	contracts.decisions["con-prior"] = []models.StudentDecision{{StudentID: "stu-1", Decision: models.DecisionFullTime}}
	contracts.decisions["con-1"] = []models.StudentDecision{
		{StudentID: "stu-1", Decision: models.DecisionFullTime},
		{StudentID: "stu-2", Decision: models.DecisionFullTime},
	}

	prior := testYear()
	prior.ID = "year-1"
	prior.Name = "2025-2026"
	years := &fakeYearRepo{years: map[string]*models.Year{"year-1": prior, "year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(100000))

	result, err := svc.Preview(context.Background(), "con-1")
	require.NoError(t, err)
	// Two full-time students with one sibling discount at the top rate.
	assert.InDelta(t, 17500, result.SuggestedTuition, 0.001)
}

func TestContractServiceSetTuitionBooksAssistance(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	contracts.decisions["con-1"] = []models.StudentDecision{{StudentID: "stu-1", Decision: models.DecisionFullTime}}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	detail, err := svc.SetTuition(context.Background(), "con-1", SetTuitionRequest{
		Tuition:             4000,
		AssistanceRequested: true,
	})
	require.NoError(t, err)
	assert.InDelta(t, 4000, detail.Tuition, 0.001)
	assert.InDelta(t, 2000, detail.AssistanceAmount, 0.001)
	assert.True(t, detail.AssistanceRequested)
}

func TestContractServiceSignLocksWhenAllGuardiansSign(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	detail, err := svc.Sign(context.Background(), "con-1", SignRequest{GuardianID: "grd-1", Signature: "Maria Alvarez"})
	require.NoError(t, err)
	assert.False(t, detail.IsSigned)

	detail, err = svc.Sign(context.Background(), "con-1", SignRequest{GuardianID: "grd-2", Signature: "Jose Alvarez"})
	require.NoError(t, err)
	assert.True(t, detail.IsSigned)

	_, err = svc.Sign(context.Background(), "con-1", SignRequest{GuardianID: "grd-1", Signature: "Maria Alvarez"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrContractSigned.Code, appErrors.FromError(err).Code)
}

func TestContractServiceSignRejectsForeignGuardian(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2"}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	_, err := svc.Sign(context.Background(), "con-1", SignRequest{GuardianID: "grd-elsewhere", Signature: "Someone"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContractServiceDocument(t *testing.T) {
	contracts := newFakeContractRepo()
	contracts.contracts["con-1"] = &models.Contract{ID: "con-1", FamilyID: "fam-1", YearID: "year-2", Tuition: 6000}
	contracts.decisions["con-1"] = []models.StudentDecision{{StudentID: "stu-1", Decision: models.DecisionFullTime}}
	contracts.signatures["con-1"] = []models.Signature{{ContractID: "con-1", GuardianID: "grd-1", Signature: "Maria Alvarez"}}
	years := &fakeYearRepo{years: map[string]*models.Year{"year-2": testYear()}}
	svc := newContractServiceForTest(contracts, years, testFamily(60000))

	out, err := svc.Document(context.Background(), "con-1")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}
