package services

import (
	"context"

	"github.com/techagentng/clubhub/db"
	apiError "github.com/techagentng/clubhub/errors"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

// ContactService resolves who a viewer may open a thread with.
type ContactService interface {
	Resolve(ctx context.Context, viewer *models.User) (*models.Contacts, error)
	Directory(ctx context.Context, viewer *models.User) (*models.Directory, error)
}

type contactService struct {
	directoryRepo db.DirectoryRepository
	logger        *zap.Logger
}

func NewContactService(directoryRepo db.DirectoryRepository, logger *zap.Logger) ContactService {
	return &contactService{directoryRepo: directoryRepo, logger: logger}
}

func (s *contactService) Directory(ctx context.Context, viewer *models.User) (*models.Directory, error) {
	if err := checkViewer(viewer); err != nil {
		return nil, err
	}
	dir, err := s.directoryRepo.LoadDirectory(ctx, viewer.ClubID)
	if err != nil {
		return nil, storeError(s.logger, err, "club directory")
	}
	return dir, nil
}

func (s *contactService) Resolve(ctx context.Context, viewer *models.User) (*models.Contacts, error) {
	dir, err := s.Directory(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return ResolveContacts(dir, viewer)
}

func checkViewer(viewer *models.User) error {
	if viewer == nil || viewer.ID == 0 {
		return apiError.Authorization("no authenticated viewer")
	}
	if viewer.ClubID == 0 {
		return apiError.Authorization("viewer has no club")
	}
	if !viewer.Role.Valid() {
		return apiError.Authorization("unrecognized role %q", viewer.Role)
	}
	return nil
}

type contactStrategy func(dir *models.Directory, viewer *models.User) *models.Contacts

var contactStrategies = map[models.Role]contactStrategy{
	models.RoleAdmin:   adminContacts,
	models.RoleCoach:   coachContacts,
	models.RoleSportif: sportifContacts,
}

// ResolveContacts is the pure resolution over a directory snapshot. The
// viewer never appears in its own result.
func ResolveContacts(dir *models.Directory, viewer *models.User) (*models.Contacts, error) {
	if err := checkViewer(viewer); err != nil {
		return nil, err
	}
	if dir.ClubID != viewer.ClubID {
		return nil, apiError.Authorization("directory does not belong to the viewer's club")
	}
	return contactStrategies[viewer.Role](dir, viewer), nil
}

func newContacts() *models.Contacts {
	return &models.Contacts{
		Coaches:    []models.Contact{},
		Admins:     []models.Contact{},
		Sportifs:   []models.Contact{},
		Categories: []models.Contact{},
		Teams:      []models.Contact{},
	}
}

func adminContacts(dir *models.Directory, viewer *models.User) *models.Contacts {
	out := newContacts()
	for i := range dir.Users {
		u := &dir.Users[i]
		if u.ID == viewer.ID {
			continue
		}
		switch u.Role {
		case models.RoleCoach:
			out.Coaches = append(out.Coaches, dir.UserContact(u))
		case models.RoleAdmin:
			out.Admins = append(out.Admins, dir.UserContact(u))
		case models.RoleSportif:
			out.Sportifs = append(out.Sportifs, dir.UserContact(u))
		}
	}
	out.SportifsByCategory = groupByCategory(dir, out.Sportifs)
	for _, c := range dir.Categories {
		out.Categories = append(out.Categories, dir.CategoryContact(c))
	}
	for _, t := range dir.Teams {
		out.Teams = append(out.Teams, dir.TeamContact(t))
	}
	return out
}

func coachContacts(dir *models.Directory, viewer *models.User) *models.Contacts {
	out := newContacts()

	categories := make(map[uint]bool)
	for _, c := range viewer.CoachedCategories {
		if _, ok := dir.Category(c.ID); ok {
			categories[c.ID] = true
		}
	}
	teams := make(map[uint]bool)
	for _, t := range dir.Teams {
		if categories[t.CategoryID] {
			teams[t.ID] = true
		}
	}
	for _, t := range viewer.CoachedTeams {
		if _, ok := dir.Team(t.ID); ok {
			teams[t.ID] = true
		}
	}

	for i := range dir.Users {
		u := &dir.Users[i]
		if u.ID == viewer.ID {
			continue
		}
		switch u.Role {
		case models.RoleCoach:
			out.Coaches = append(out.Coaches, dir.UserContact(u))
		case models.RoleAdmin:
			out.Admins = append(out.Admins, dir.UserContact(u))
		case models.RoleSportif:
			inCategory := u.CategoryID != nil && categories[*u.CategoryID]
			inTeam := u.TeamID != nil && teams[*u.TeamID]
			if inCategory || inTeam {
				out.Sportifs = append(out.Sportifs, dir.UserContact(u))
			}
		}
	}
	for _, c := range dir.Categories {
		if categories[c.ID] {
			out.Categories = append(out.Categories, dir.CategoryContact(c))
		}
	}
	for _, t := range dir.Teams {
		if teams[t.ID] {
			out.Teams = append(out.Teams, dir.TeamContact(t))
		}
	}
	return out
}

func sportifContacts(dir *models.Directory, viewer *models.User) *models.Contacts {
	out := newContacts()

	var team *models.Team
	if viewer.TeamID != nil {
		if t, ok := dir.Team(*viewer.TeamID); ok {
			team = &t
		}
	}

	for i := range dir.Users {
		u := &dir.Users[i]
		if u.ID == viewer.ID {
			continue
		}
		switch u.Role {
		case models.RoleAdmin:
			out.Admins = append(out.Admins, dir.UserContact(u))
		case models.RoleCoach:
			ownCategory := viewer.CategoryID != nil && u.CoachesCategory(*viewer.CategoryID)
			ownTeam := team != nil && u.CoachesTeam(team)
			if ownCategory || ownTeam {
				out.Coaches = append(out.Coaches, dir.UserContact(u))
			}
		case models.RoleSportif:
			if viewer.CategoryID != nil && u.InCategory(*viewer.CategoryID) {
				out.Sportifs = append(out.Sportifs, dir.UserContact(u))
			}
		}
	}
	if viewer.CategoryID != nil {
		if c, ok := dir.Category(*viewer.CategoryID); ok {
			out.Categories = append(out.Categories, dir.CategoryContact(c))
		}
	}
	if team != nil {
		out.Teams = append(out.Teams, dir.TeamContact(*team))
	}
	return out
}

func groupByCategory(dir *models.Directory, sportifs []models.Contact) []models.SportifGroup {
	groups := make([]models.SportifGroup, 0, len(dir.Categories)+1)
	index := make(map[uint]int)
	for _, c := range dir.Categories {
		index[c.ID] = len(groups)
		groups = append(groups, models.SportifGroup{CategoryID: c.ID, CategoryName: c.Name, Sportifs: []models.Contact{}})
	}
	var unassigned []models.Contact
	for _, s := range sportifs {
		if s.CategoryID != nil {
			if i, ok := index[*s.CategoryID]; ok {
				groups[i].Sportifs = append(groups[i].Sportifs, s)
				continue
			}
		}
		unassigned = append(unassigned, s)
	}
	if len(unassigned) > 0 {
		groups = append(groups, models.SportifGroup{CategoryName: "Unassigned", Sportifs: unassigned})
	}
	return groups
}
