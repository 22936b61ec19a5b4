package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
)

type fakeFamilyServiceRepo struct {
	families  map[string]*models.Family
	guardians map[string][]models.Guardian
	students  map[string][]models.Student
	deleted   []string
}

func newFakeFamilyServiceRepo() *fakeFamilyServiceRepo {
	return &fakeFamilyServiceRepo{
		families:  make(map[string]*models.Family),
		guardians: make(map[string][]models.Guardian),
		students:  make(map[string][]models.Student),
	}
}

func (f *fakeFamilyServiceRepo) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error) {
	out := make([]models.Family, 0, len(f.families))
	for _, fam := range f.families {
		out = append(out, *fam)
	}
	return out, len(out), nil
}

func (f *fakeFamilyServiceRepo) FindByID(ctx context.Context, id string) (*models.Family, error) {
	fam, ok := f.families[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *fam
	return &copied, nil
}

func (f *fakeFamilyServiceRepo) FindDetailByID(ctx context.Context, id string) (*models.FamilyDetail, error) {
	fam, ok := f.families[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.FamilyDetail{
		Family:    *fam,
		Guardians: f.guardians[id],
		Students:  f.students[id],
	}, nil
}

func (f *fakeFamilyServiceRepo) Create(ctx context.Context, family *models.Family) error {
	family.ID = "fam-new"
	copied := *family
	f.families[family.ID] = &copied
	return nil
}

func (f *fakeFamilyServiceRepo) Update(ctx context.Context, family *models.Family) error {
	if _, ok := f.families[family.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *family
	f.families[family.ID] = &copied
	return nil
}

func (f *fakeFamilyServiceRepo) Delete(ctx context.Context, id string) error {
	delete(f.families, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFamilyServiceRepo) ReplaceGuardians(ctx context.Context, familyID string, guardians []models.Guardian) error {
	f.guardians[familyID] = guardians
	return nil
}

func (f *fakeFamilyServiceRepo) ReplaceStudents(ctx context.Context, familyID string, students []models.Student) error {
	f.students[familyID] = students
	return nil
}

func TestFamilyServiceCreate(t *testing.T) {
	repo := newFakeFamilyServiceRepo()
	svc := NewFamilyService(repo, nil, nil)

	income := 55000.0
	detail, err := svc.Create(context.Background(), SaveFamilyRequest{
		Name:        "Alvarez",
		GrossIncome: &income,
		Guardians:   []GuardianInput{{FullName: "Maria Alvarez", Email: "maria@example.com"}},
		Students:    []StudentInput{{FullName: "Leo Alvarez"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "fam-new", detail.ID)
	require.Len(t, detail.Guardians, 1)
	assert.Equal(t, "fam-new", detail.Guardians[0].FamilyID)
	require.Len(t, detail.Students, 1)
	assert.Equal(t, "Leo Alvarez", detail.Students[0].FullName)
}

func TestFamilyServiceCreateValidation(t *testing.T) {
	repo := newFakeFamilyServiceRepo()
	svc := NewFamilyService(repo, nil, nil)

	_, err := svc.Create(context.Background(), SaveFamilyRequest{Name: ""})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), SaveFamilyRequest{
		Name:      "Alvarez",
		Guardians: []GuardianInput{{FullName: "Maria", Email: "not-an-email"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFamilyServiceUpdateReplacesMembers(t *testing.T) {
	repo := newFakeFamilyServiceRepo()
	repo.families["fam-1"] = &models.Family{ID: "fam-1", Name: "Alvarez"}
	repo.students["fam-1"] = []models.Student{
		{ID: "stu-1", FamilyID: "fam-1", FullName: "Leo Alvarez"},
		{ID: "stu-2", FamilyID: "fam-1", FullName: "Mia Alvarez"},
	}
	svc := NewFamilyService(repo, nil, nil)

	detail, err := svc.Update(context.Background(), "fam-1", SaveFamilyRequest{
		Name:     "Alvarez-Reyes",
		Students: []StudentInput{{ID: "stu-1", FullName: "Leo Alvarez"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alvarez-Reyes", detail.Name)
	require.Len(t, detail.Students, 1)
	assert.Empty(t, detail.Guardians)
}

func TestFamilyServiceUpdateNotFound(t *testing.T) {
	repo := newFakeFamilyServiceRepo()
	svc := NewFamilyService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "fam-missing", SaveFamilyRequest{Name: "Nobody"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFamilyServiceDelete(t *testing.T) {
	repo := newFakeFamilyServiceRepo()
	repo.families["fam-1"] = &models.Family{ID: "fam-1", Name: "Alvarez"}
	svc := NewFamilyService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "fam-1"))
	assert.Equal(t, []string{"fam-1"}, repo.deleted)

	err := svc.Delete(context.Background(), "fam-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFamilyServiceList(t *testing.T) {
	repo := newFakeFamilyServiceRepo()
	repo.families["fam-1"] = &models.Family{ID: "fam-1", Name: "Alvarez"}
	svc := NewFamilyService(repo, nil, nil)

	families, pagination, err := svc.List(context.Background(), models.FamilyFilter{})
	require.NoError(t, err)
	assert.Len(t, families, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}
