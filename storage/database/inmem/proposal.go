package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
)

type proposalRepository struct {
	db *DB
}

var _ proposal.Repository = (*proposalRepository)(nil) // interface compliance check

func NewProposalRepository(db *DB) *proposalRepository {
	return &proposalRepository{db: db}
}

func (repo *proposalRepository) withNames(p proposal.Proposal) proposal.Proposal {
	p.StudentName = repo.db.userName(p.StudentID)
	p.SupervisorName = repo.db.userName(p.SubmittedTo)
	p.StatusID = p.Status.ID()
	return p
}

func (repo *proposalRepository) addHistory(p proposal.Proposal, old *proposal.Status, changedBy int64, comments *string) {
	repo.db.history = append(repo.db.history, proposal.History{
		ID:         repo.db.nextID("proposal_history"),
		ProposalID: p.ID,
		OldStatus:  old,
		NewStatus:  p.Status,
		ChangedBy:  changedBy,
		Comments:   comments,
		CreatedAt:  p.UpdatedAt,
	})
}

func (repo *proposalRepository) CreateProposal(_ context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.activeAssignmentOfStudent(p.StudentID); ok {
		return proposal.Proposal{}, project.ErrActiveProjectExists
	}
	p.ID = repo.db.nextID("proposals")
	p.Status = proposal.StatusPending
	repo.db.proposals[p.ID] = p
	repo.addHistory(p, nil, p.StudentID, nil)
	return repo.withNames(p), nil
}

func (repo *proposalRepository) GetProposal(_ context.Context, id int64) (proposal.Proposal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.proposals[id]; ok {
		return repo.withNames(p), nil
	}
	return proposal.Proposal{}, proposal.ErrNotFound
}

func (repo *proposalRepository) ListProposals(_ context.Context, filter proposal.QueryFilter) ([]proposal.Proposal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	proposals := make([]proposal.Proposal, 0)
	for _, p := range repo.db.proposals {
		if filter.StudentID != 0 && p.StudentID != filter.StudentID {
			continue
		}
		if filter.SubmittedTo != 0 && p.SubmittedTo != filter.SubmittedTo {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		proposals = append(proposals, repo.withNames(p))
	}
	sort.Slice(proposals, func(i, j int) bool {
		a, b := proposals[i], proposals[j]
		if !a.SubmissionDate.Equal(b.SubmissionDate) {
			return a.SubmissionDate.After(b.SubmissionDate)
		}
		return a.ID > b.ID
	})
	return proposals, nil
}

func (repo *proposalRepository) UpdateProposal(_ context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.proposals[p.ID]
	if !ok {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	if !orig.Status.Editable() {
		return proposal.Proposal{}, proposal.ErrNotEditable
	}
	orig.Title = p.Title
	orig.Description = p.Description
	orig.Type = p.Type
	orig.Specialization = p.Specialization
	orig.Outcome = p.Outcome
	orig.UpdatedAt = p.UpdatedAt
	repo.db.proposals[p.ID] = orig
	return repo.withNames(orig), nil
}

func (repo *proposalRepository) ApplyTransition(_ context.Context, t proposal.Transition) (proposal.Proposal, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p, ok := repo.db.proposals[t.ProposalID]
	if !ok {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	if !t.Allows(p.Status) || !p.Status.CanTransitionTo(t.To) {
		return proposal.Proposal{}, proposal.ErrInvalidTransition
	}

	if t.To == proposal.StatusApproved {
		if err := repo.approve(&p, t); err != nil {
			return proposal.Proposal{}, err
		}
	}

	old := p.Status
	p.Status = t.To
	p.UpdatedAt = t.At
	if t.To != proposal.StatusPending {
		at := t.At
		p.DecidedAt = &at
		p.ReviewerComments = t.Comments
	}
	repo.db.proposals[p.ID] = p
	repo.addHistory(p, &old, t.ChangedBy, t.Comments)
	return repo.withNames(p), nil
}

// approve checks then applies the project side of an approval.
// Nothing is written unless the student can take the project.
func (repo *proposalRepository) approve(p *proposal.Proposal, t proposal.Transition) error {
	db := repo.db
	if _, ok := db.activeAssignmentOfStudent(p.StudentID); ok {
		return project.ErrActiveProjectExists
	}

	if p.ProjectID != nil {
		if !db.available(*p.ProjectID) {
			return project.ErrProjectUnavailable
		}
		if !db.supervises(p.SubmittedTo, *p.ProjectID) {
			db.supervisorProjects = append(db.supervisorProjects, supervisorProject{supervisorID: p.SubmittedTo, projectID: *p.ProjectID})
		}
	} else {
		prj := project.Project{
			ID:             db.nextID("projects"),
			Title:          p.Title,
			Description:    p.Description,
			Type:           p.Type,
			Specialization: p.Specialization,
			Status:         project.StatusActive,
			CreatedAt:      t.At,
			UpdatedAt:      t.At,
		}
		db.projects[prj.ID] = prj
		db.supervisorProjects = append(db.supervisorProjects, supervisorProject{supervisorID: p.SubmittedTo, projectID: prj.ID})
		p.ProjectID = &prj.ID
	}

	_, err := db.assignStudent(p.StudentID, *p.ProjectID, t.At)
	return err
}

func (repo *proposalRepository) ListHistory(_ context.Context, proposalID int64) ([]proposal.History, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	hist := make([]proposal.History, 0)
	for _, h := range repo.db.history {
		if h.ProposalID == proposalID {
			hist = append(hist, h)
		}
	}
	return hist, nil
}
