package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages game registration and lookup.
// It provides a thread-safe way to register and retrieve games by their command.
type Registry struct {
	games map[string]Game
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Game),
	}
}

// Register adds a game to the registry.
// If a game with the same command already exists, it will be replaced.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Command() == "" {
		return fmt.Errorf("game command cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Command()] = g
	return nil
}

// Get retrieves a game by its command.
// Returns the game and true if found, nil and false otherwise.
func (r *Registry) Get(command string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[command]
	return g, ok
}

// List returns all registered games sorted by command.
// The returned slice is a copy, so modifications won't affect the registry.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Command() < games[j].Command() })
	return games
}

// Commands returns all registered game commands, sorted.
func (r *Registry) Commands() []string {
	games := r.List()
	commands := make([]string, len(games))
	for i, g := range games {
		commands[i] = g.Command()
	}
	return commands
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Unregister removes a game from the registry by its command.
// Returns true if the game was found and removed, false otherwise.
func (r *Registry) Unregister(command string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[command]; ok {
		delete(r.games, command)
		return true
	}
	return false
}
