package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	ByID    map[uuid.UUID]*domain.User
	ByEmail map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		ByID:    make(map[uuid.UUID]*domain.User),
		ByEmail: make(map[string]*domain.User),
	}
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := m.ByEmail[user.Email]; ok {
		return nil, domain.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.ByID[user.ID] = user
	m.ByEmail[user.Email] = user
	return user, nil
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByEmail retrieves a user by email
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if user, ok := m.ByEmail[email]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// UpdateName updates the user's display name
func (m *MockUserRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) (*domain.User, error) {
	user, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.Name = name
	user.UpdatedAt = time.Now()
	return user, nil
}

// Delete removes the user
func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	user, ok := m.ByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(m.ByEmail, user.Email)
	delete(m.ByID, id)
	return nil
}

// AddUser seeds a user and returns it
func (m *MockUserRepository) AddUser(email, name string) *domain.User {
	user := &domain.User{ID: uuid.New(), Email: email, Name: name}
	m.ByID[user.ID] = user
	m.ByEmail[email] = user
	return user
}

// MockSessionRepository is a mock implementation of domain.SessionRepository
type MockSessionRepository struct {
	Sessions map[string]*domain.Session
	Users    *MockUserRepository
}

// NewMockSessionRepository creates a new MockSessionRepository backed by
// the given user repository for session/user joins
func NewMockSessionRepository(users *MockUserRepository) *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.Session),
		Users:    users,
	}
}

// Create stores a session
func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	m.Sessions[session.TokenHash] = session
	return nil
}

// GetByTokenHash retrieves a live session and its user
func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, *domain.User, error) {
	session, ok := m.Sessions[tokenHash]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, nil, domain.ErrSessionNotFound
	}
	user, err := m.Users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, domain.ErrSessionNotFound
	}
	return session, user, nil
}

// Renew extends a session's expiry
func (m *MockSessionRepository) Renew(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	session, ok := m.Sessions[tokenHash]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	return nil
}

// Delete removes a session
func (m *MockSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	delete(m.Sessions, tokenHash)
	return nil
}

// DeleteExpired removes expired sessions
func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64
	for hash, session := range m.Sessions {
		if time.Now().After(session.ExpiresAt) {
			delete(m.Sessions, hash)
			n++
		}
	}
	return n, nil
}

// MockAPITokenRepository is a mock implementation of domain.APITokenRepository
type MockAPITokenRepository struct {
	Tokens map[uuid.UUID]*domain.APIToken
}

// NewMockAPITokenRepository creates a new MockAPITokenRepository
func NewMockAPITokenRepository() *MockAPITokenRepository {
	return &MockAPITokenRepository{Tokens: make(map[uuid.UUID]*domain.APIToken)}
}

// Create stores a token
func (m *MockAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	m.Tokens[token.ID] = token
	return nil
}

// GetByUser lists the user's active tokens
func (m *MockAPITokenRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.APIToken, error) {
	var tokens []*domain.APIToken
	for _, token := range m.Tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			tokens = append(tokens, token)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	return tokens, nil
}

// GetByID retrieves a token owned by the user
func (m *MockAPITokenRepository) GetByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*domain.APIToken, error) {
	token, ok := m.Tokens[id]
	if !ok || token.UserID != userID {
		return nil, domain.ErrAPITokenNotFound
	}
	return token, nil
}

// GetByHash retrieves an active token by its hash
func (m *MockAPITokenRepository) GetByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	for _, token := range m.Tokens {
		if token.TokenHash == hash && token.RevokedAt == nil {
			return token, nil
		}
	}
	return nil, domain.ErrAPITokenNotFound
}

// Revoke marks a token revoked
func (m *MockAPITokenRepository) Revoke(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	token, ok := m.Tokens[id]
	if !ok || token.UserID != userID || token.RevokedAt != nil {
		return domain.ErrAPITokenNotFound
	}
	now := time.Now()
	token.RevokedAt = &now
	return nil
}

// UpdateLastUsed records token usage
func (m *MockAPITokenRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	if token, ok := m.Tokens[id]; ok {
		now := time.Now()
		token.LastUsedAt = &now
	}
	return nil
}

// MockTeamRepository is a mock implementation of domain.TeamRepository.
// It shares membership state with a MockMembershipRepository so that
// CreateWithOwner behaves transactionally.
type MockTeamRepository struct {
	Teams       map[int32]*domain.Team
	Memberships *MockMembershipRepository
	nextID      int32
}

// NewMockTeamRepository creates a new MockTeamRepository
func NewMockTeamRepository(memberships *MockMembershipRepository) *MockTeamRepository {
	return &MockTeamRepository{
		Teams:       make(map[int32]*domain.Team),
		Memberships: memberships,
	}
}

// CreateWithOwner inserts the team and the owner's admin membership
func (m *MockTeamRepository) CreateWithOwner(ctx context.Context, team *domain.Team, ownerID uuid.UUID) (*domain.Team, error) {
	m.nextID++
	team.ID = m.nextID
	team.CreatedBy = ownerID
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	m.Teams[team.ID] = team
	m.Memberships.Rows[membershipKey(ownerID, team.ID)] = &domain.TeamMembership{
		UserID: ownerID,
		TeamID: team.ID,
		Role:   domain.RoleAdmin,
	}
	return team, nil
}

// GetByID retrieves a team by ID
func (m *MockTeamRepository) GetByID(ctx context.Context, id int32) (*domain.Team, error) {
	if team, ok := m.Teams[id]; ok {
		return team, nil
	}
	return nil, domain.ErrTeamNotFound
}

// GetByUser lists teams the user belongs to with their role
func (m *MockTeamRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TeamWithRole, error) {
	var teams []*domain.TeamWithRole
	for _, membership := range m.Memberships.Rows {
		if membership.UserID != userID {
			continue
		}
		team, ok := m.Teams[membership.TeamID]
		if !ok {
			continue
		}
		teams = append(teams, &domain.TeamWithRole{Team: *team, Role: membership.Role})
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

// Update renames a team
func (m *MockTeamRepository) Update(ctx context.Context, id int32, name string) (*domain.Team, error) {
	team, ok := m.Teams[id]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	team.Name = name
	team.UpdatedAt = time.Now()
	return team, nil
}

// Delete removes a team and its memberships
func (m *MockTeamRepository) Delete(ctx context.Context, id int32) error {
	if _, ok := m.Teams[id]; !ok {
		return domain.ErrTeamNotFound
	}
	delete(m.Teams, id)
	for key, membership := range m.Memberships.Rows {
		if membership.TeamID == id {
			delete(m.Memberships.Rows, key)
		}
	}
	return nil
}

func membershipKey(userID uuid.UUID, teamID int32) string {
	return fmt.Sprintf("%s:%d", userID, teamID)
}

// MockMembershipRepository is a mock implementation of domain.MembershipRepository
type MockMembershipRepository struct {
	Rows map[string]*domain.TeamMembership
}

// NewMockMembershipRepository creates a new MockMembershipRepository
func NewMockMembershipRepository() *MockMembershipRepository {
	return &MockMembershipRepository{Rows: make(map[string]*domain.TeamMembership)}
}

// GetRole returns the user's role in the team
func (m *MockMembershipRepository) GetRole(ctx context.Context, userID uuid.UUID, teamID int32) (domain.Role, error) {
	if membership, ok := m.Rows[membershipKey(userID, teamID)]; ok {
		return membership.Role, nil
	}
	return "", domain.ErrNotTeamMember
}

// ListMembers lists the team's members
func (m *MockMembershipRepository) ListMembers(ctx context.Context, teamID int32) ([]*domain.TeamMember, error) {
	var members []*domain.TeamMember
	for _, membership := range m.Rows {
		if membership.TeamID != teamID {
			continue
		}
		members = append(members, &domain.TeamMember{
			UserID:   membership.UserID,
			Role:     membership.Role,
			JoinedAt: membership.CreatedAt,
		})
	}
	return members, nil
}

// Add inserts a membership
func (m *MockMembershipRepository) Add(ctx context.Context, membership *domain.TeamMembership) error {
	key := membershipKey(membership.UserID, membership.TeamID)
	if _, ok := m.Rows[key]; ok {
		return domain.ErrMemberExists
	}
	membership.CreatedAt = time.Now()
	m.Rows[key] = membership
	return nil
}

// UpdateRole changes a member's role
func (m *MockMembershipRepository) UpdateRole(ctx context.Context, userID uuid.UUID, teamID int32, role domain.Role) error {
	membership, ok := m.Rows[membershipKey(userID, teamID)]
	if !ok {
		return domain.ErrMembershipNotFound
	}
	membership.Role = role
	return nil
}

// Remove deletes a membership
func (m *MockMembershipRepository) Remove(ctx context.Context, userID uuid.UUID, teamID int32) error {
	key := membershipKey(userID, teamID)
	if _, ok := m.Rows[key]; !ok {
		return domain.ErrMembershipNotFound
	}
	delete(m.Rows, key)
	return nil
}

// CountAdmins counts the team's admins
func (m *MockMembershipRepository) CountAdmins(ctx context.Context, teamID int32) (int64, error) {
	var n int64
	for _, membership := range m.Rows {
		if membership.TeamID == teamID && membership.Role == domain.RoleAdmin {
			n++
		}
	}
	return n, nil
}

// MemberTeamIDs lists the ids of teams the user belongs to
func (m *MockMembershipRepository) MemberTeamIDs(ctx context.Context, userID uuid.UUID) ([]int32, error) {
	var ids []int32
	for _, membership := range m.Rows {
		if membership.UserID == userID {
			ids = append(ids, membership.TeamID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SetRole seeds a membership directly
func (m *MockMembershipRepository) SetRole(userID uuid.UUID, teamID int32, role domain.Role) {
	m.Rows[membershipKey(userID, teamID)] = &domain.TeamMembership{
		UserID: userID,
		TeamID: teamID,
		Role:   role,
	}
}

// MockCategoryRepository is a mock implementation of domain.CategoryRepository
type MockCategoryRepository struct {
	Categories map[int32]*domain.Category
	InUse      map[int32]int64
	nextID     int32
}

// NewMockCategoryRepository creates a new MockCategoryRepository
func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		Categories: make(map[int32]*domain.Category),
		InUse:      make(map[int32]int64),
	}
}

// Create stores a category
func (m *MockCategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	m.nextID++
	category.ID = m.nextID
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	m.Categories[category.ID] = category
	return category, nil
}

// GetByID retrieves a category by ID
func (m *MockCategoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	if category, ok := m.Categories[id]; ok {
		return category, nil
	}
	return nil, domain.ErrCategoryNotFound
}

// ListVisible lists defaults, personal and member-team categories
func (m *MockCategoryRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*domain.Category, error) {
	var categories []*domain.Category
	for _, category := range m.Categories {
		if categoryVisible(category, userID, teamIDs) {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func categoryVisible(category *domain.Category, userID uuid.UUID, teamIDs []int32) bool {
	if category.IsDefault {
		return true
	}
	if category.UserID != nil && *category.UserID == userID {
		return true
	}
	if category.TeamID != nil {
		for _, id := range teamIDs {
			if id == *category.TeamID {
				return true
			}
		}
	}
	return false
}

// Update renames and recolors a category
func (m *MockCategoryRepository) Update(ctx context.Context, id int32, name, color string) (*domain.Category, error) {
	category, ok := m.Categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	category.Name = name
	category.Color = color
	category.UpdatedAt = time.Now()
	return category, nil
}

// Delete removes a category
func (m *MockCategoryRepository) Delete(ctx context.Context, id int32) error {
	if _, ok := m.Categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(m.Categories, id)
	return nil
}

// InUseCount reports the seeded reference count for a category
func (m *MockCategoryRepository) InUseCount(ctx context.Context, id int32) (int64, error) {
	return m.InUse[id], nil
}

// CountForOwner counts categories owned by the scope
func (m *MockCategoryRepository) CountForOwner(ctx context.Context, scope domain.Scope) (int64, error) {
	wantUser, wantTeam := scope.Columns()
	var n int64
	for _, category := range m.Categories {
		switch {
		case wantTeam != nil:
			if category.TeamID != nil && *category.TeamID == *wantTeam {
				n++
			}
		case wantUser != nil:
			if category.UserID != nil && *category.UserID == *wantUser {
				n++
			}
		default:
			if category.IsDefault {
				n++
			}
		}
	}
	return n, nil
}

// AddCategory seeds a category and returns it
func (m *MockCategoryRepository) AddCategory(name string, userID *uuid.UUID, teamID *int32, isDefault bool) *domain.Category {
	m.nextID++
	category := &domain.Category{
		ID:        m.nextID,
		Name:      name,
		Color:     "#9E9E9E",
		UserID:    userID,
		TeamID:    teamID,
		IsDefault: isDefault,
	}
	m.Categories[category.ID] = category
	return category
}

// MockExpenseRepository is a mock implementation of domain.ExpenseRepository
type MockExpenseRepository struct {
	Expenses map[int32]*domain.Expense
	nextID   int32
}

// NewMockExpenseRepository creates a new MockExpenseRepository
func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{Expenses: make(map[int32]*domain.Expense)}
}

// Create stores an expense
func (m *MockExpenseRepository) Create(ctx context.Context, expense *domain.Expense) (*domain.Expense, error) {
	m.nextID++
	expense.ID = m.nextID
	expense.CreatedAt = time.Now()
	expense.UpdatedAt = expense.CreatedAt
	m.Expenses[expense.ID] = expense
	return expense, nil
}

// GetByID retrieves an expense by ID
func (m *MockExpenseRepository) GetByID(ctx context.Context, id int32) (*domain.Expense, error) {
	if expense, ok := m.Expenses[id]; ok {
		return expense, nil
	}
	return nil, domain.ErrExpenseNotFound
}

// ListVisible lists expenses visible to the user, newest first
func (m *MockExpenseRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32, filters *domain.ExpenseFilters) ([]*domain.Expense, int64, error) {
	var visible []*domain.Expense
	for _, expense := range m.Expenses {
		if !expenseVisible(expense, userID, teamIDs) {
			continue
		}
		if filters != nil && !matchesFilters(expense, filters) {
			continue
		}
		visible = append(visible, expense)
	}
	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].ExpenseDate.Equal(visible[j].ExpenseDate) {
			return visible[i].ExpenseDate.After(visible[j].ExpenseDate)
		}
		return visible[i].ID > visible[j].ID
	})
	total := int64(len(visible))
	if filters != nil && filters.PageSize > 0 {
		offset := int((filters.Page - 1) * filters.PageSize)
		if offset >= len(visible) {
			return []*domain.Expense{}, total, nil
		}
		end := offset + int(filters.PageSize)
		if end > len(visible) {
			end = len(visible)
		}
		visible = visible[offset:end]
	}
	return visible, total, nil
}

func expenseVisible(expense *domain.Expense, userID uuid.UUID, teamIDs []int32) bool {
	if expense.TeamID == nil {
		return expense.UserID == userID
	}
	for _, id := range teamIDs {
		if id == *expense.TeamID {
			return true
		}
	}
	return false
}

func matchesFilters(expense *domain.Expense, filters *domain.ExpenseFilters) bool {
	if filters.CategoryID != nil && expense.CategoryID != *filters.CategoryID {
		return false
	}
	if filters.TeamID != nil {
		if expense.TeamID == nil || *expense.TeamID != *filters.TeamID {
			return false
		}
	}
	if filters.StartDate != nil && expense.ExpenseDate.Before(*filters.StartDate) {
		return false
	}
	if filters.EndDate != nil && expense.ExpenseDate.After(*filters.EndDate) {
		return false
	}
	return true
}

// Update stores an updated expense
func (m *MockExpenseRepository) Update(ctx context.Context, expense *domain.Expense) (*domain.Expense, error) {
	if _, ok := m.Expenses[expense.ID]; !ok {
		return nil, domain.ErrExpenseNotFound
	}
	expense.UpdatedAt = time.Now()
	m.Expenses[expense.ID] = expense
	return expense, nil
}

// Delete removes an expense
func (m *MockExpenseRepository) Delete(ctx context.Context, id int32) error {
	if _, ok := m.Expenses[id]; !ok {
		return domain.ErrExpenseNotFound
	}
	delete(m.Expenses, id)
	return nil
}

// SetReceiptURL sets or clears the expense's receipt object path
func (m *MockExpenseRepository) SetReceiptURL(ctx context.Context, id int32, url *string) error {
	expense, ok := m.Expenses[id]
	if !ok {
		return domain.ErrExpenseNotFound
	}
	expense.ReceiptURL = url
	return nil
}

// SummaryByCategory aggregates visible expenses in the range per category
func (m *MockExpenseRepository) SummaryByCategory(ctx context.Context, userID uuid.UUID, teamIDs []int32, start, end time.Time) ([]*domain.CategorySummary, error) {
	byCategory := make(map[int32]*domain.CategorySummary)
	for _, expense := range m.Expenses {
		if !expenseVisible(expense, userID, teamIDs) {
			continue
		}
		if expense.ExpenseDate.Before(start) || expense.ExpenseDate.After(end) {
			continue
		}
		summary, ok := byCategory[expense.CategoryID]
		if !ok {
			summary = &domain.CategorySummary{CategoryID: expense.CategoryID}
			byCategory[expense.CategoryID] = summary
		}
		summary.Total = summary.Total.Add(expense.Amount)
		summary.Count++
	}
	var summaries []*domain.CategorySummary
	for _, summary := range byCategory {
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CategoryID < summaries[j].CategoryID
	})
	return summaries, nil
}

// MockBudgetRepository is a mock implementation of domain.BudgetRepository
type MockBudgetRepository struct {
	Budgets map[int32]*domain.Budget
	nextID  int32
}

// NewMockBudgetRepository creates a new MockBudgetRepository
func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{Budgets: make(map[int32]*domain.Budget)}
}

// Create stores a budget
func (m *MockBudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	m.nextID++
	budget.ID = m.nextID
	budget.CreatedAt = time.Now()
	budget.UpdatedAt = budget.CreatedAt
	m.Budgets[budget.ID] = budget
	return budget, nil
}

// GetByID retrieves a budget by ID
func (m *MockBudgetRepository) GetByID(ctx context.Context, id int32) (*domain.Budget, error) {
	if budget, ok := m.Budgets[id]; ok {
		return budget, nil
	}
	return nil, domain.ErrBudgetNotFound
}

// ListVisible lists budgets visible to the user
func (m *MockBudgetRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*domain.Budget, error) {
	var budgets []*domain.Budget
	for _, budget := range m.Budgets {
		if budget.UserID != nil && *budget.UserID == userID {
			budgets = append(budgets, budget)
			continue
		}
		if budget.TeamID != nil {
			for _, id := range teamIDs {
				if id == *budget.TeamID {
					budgets = append(budgets, budget)
					break
				}
			}
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].ID < budgets[j].ID })
	return budgets, nil
}

// Update stores an updated budget
func (m *MockBudgetRepository) Update(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	if _, ok := m.Budgets[budget.ID]; !ok {
		return nil, domain.ErrBudgetNotFound
	}
	budget.UpdatedAt = time.Now()
	m.Budgets[budget.ID] = budget
	return budget, nil
}

// Delete removes a budget
func (m *MockBudgetRepository) Delete(ctx context.Context, id int32) error {
	if _, ok := m.Budgets[id]; !ok {
		return domain.ErrBudgetNotFound
	}
	delete(m.Budgets, id)
	return nil
}

// MockRecurringExpenseRepository is a mock implementation of
// domain.RecurringExpenseRepository
type MockRecurringExpenseRepository struct {
	Templates map[int32]*domain.RecurringExpense
	nextID    int32
}

// NewMockRecurringExpenseRepository creates a new MockRecurringExpenseRepository
func NewMockRecurringExpenseRepository() *MockRecurringExpenseRepository {
	return &MockRecurringExpenseRepository{Templates: make(map[int32]*domain.RecurringExpense)}
}

// Create stores a template
func (m *MockRecurringExpenseRepository) Create(ctx context.Context, template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	m.nextID++
	template.ID = m.nextID
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt
	m.Templates[template.ID] = template
	return template, nil
}

// GetByID retrieves a template by ID
func (m *MockRecurringExpenseRepository) GetByID(ctx context.Context, id int32) (*domain.RecurringExpense, error) {
	if template, ok := m.Templates[id]; ok {
		return template, nil
	}
	return nil, domain.ErrRecurringNotFound
}

// ListVisible lists templates visible to the user
func (m *MockRecurringExpenseRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*domain.RecurringExpense, error) {
	var templates []*domain.RecurringExpense
	for _, template := range m.Templates {
		if template.TeamID == nil {
			if template.UserID == userID {
				templates = append(templates, template)
			}
			continue
		}
		for _, id := range teamIDs {
			if id == *template.TeamID {
				templates = append(templates, template)
				break
			}
		}
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

// Update stores an updated template
func (m *MockRecurringExpenseRepository) Update(ctx context.Context, template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	if _, ok := m.Templates[template.ID]; !ok {
		return nil, domain.ErrRecurringNotFound
	}
	template.UpdatedAt = time.Now()
	m.Templates[template.ID] = template
	return template, nil
}

// Delete removes a template
func (m *MockRecurringExpenseRepository) Delete(ctx context.Context, id int32) error {
	if _, ok := m.Templates[id]; !ok {
		return domain.ErrRecurringNotFound
	}
	delete(m.Templates, id)
	return nil
}

// PublishedEvent records a single Publish call
type PublishedEvent struct {
	Channel string
	Event   websocket.Event
}

// RevokedSubscription records a single Unsubscribe call
type RevokedSubscription struct {
	UserChannel string
	Channel     string
}

// CapturePublisher records published events for assertion
type CapturePublisher struct {
	mu      sync.Mutex
	Events  []PublishedEvent
	Revoked []RevokedSubscription
}

// Publish records the event
func (p *CapturePublisher) Publish(channel string, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{Channel: channel, Event: event})
}

// Unsubscribe records the revoked subscription
func (p *CapturePublisher) Unsubscribe(userChannel, channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Revoked = append(p.Revoked, RevokedSubscription{UserChannel: userChannel, Channel: channel})
}

// Last returns the most recently published event, or nil
func (p *CapturePublisher) Last() *PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Events) == 0 {
		return nil
	}
	return &p.Events[len(p.Events)-1]
}

// MockReceiptStorage is an in-memory mock of storage.ReceiptRepository
type MockReceiptStorage struct {
	Objects map[string][]byte
	Deleted []string
}

// NewMockReceiptStorage creates a new MockReceiptStorage
func NewMockReceiptStorage() *MockReceiptStorage {
	return &MockReceiptStorage{Objects: make(map[string][]byte)}
}

// Upload stores the object bytes under objectPath
func (m *MockReceiptStorage) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.Objects[objectPath] = body
	return objectPath, nil
}

// Delete removes the object
func (m *MockReceiptStorage) Delete(ctx context.Context, objectPath string) error {
	delete(m.Objects, objectPath)
	m.Deleted = append(m.Deleted, objectPath)
	return nil
}

// GeneratePresignedURL returns a deterministic fake URL
func (m *MockReceiptStorage) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return "https://storage.test/" + objectPath, nil
}
