package conversation

import "sync"

// Store holds the single active context for the core's single-session
// model (spec.md §3, §4.3). All operations are synchronous; the Dispatcher
// is responsible for serializing calls across a turn.
type Store struct {
	mu      sync.Mutex
	context *ActiveContext
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) HasActiveContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context != nil
}

func (s *Store) ActiveContext() *ActiveContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context
}

// SetActiveContext replaces the context outright when its name differs
// from the current one, or merges slots/entities into the existing
// context while preserving OriginalUtterance when the name matches.
func (s *Store) SetActiveContext(ctx *ActiveContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx == nil {
		return
	}

	if s.context == nil || s.context.Name() != ctx.Name() {
		s.context = ctx
		return
	}

	original := s.context.OriginalUtterance
	for name, slot := range ctx.Slots {
		s.context.Slots[name] = slot
	}
	for _, name := range ctx.SlotOrder {
		if !containsString(s.context.SlotOrder, name) {
			s.context.SlotOrder = append(s.context.SlotOrder, name)
		}
	}
	if len(ctx.Entities) > 0 {
		s.context.Entities = ctx.Entities
	}
	if len(ctx.CurrentEntities) > 0 {
		s.context.CurrentEntities = ctx.CurrentEntities
	}
	s.context.Lang = ctx.Lang
	s.context.ActionName = ctx.ActionName
	s.context.ConfigDataFilePath = ctx.ConfigDataFilePath
	s.context.IsInActionLoop = ctx.IsInActionLoop
	s.context.NextAction = ctx.NextAction
	s.context.OriginalUtterance = original
}

func (s *Store) CleanActiveContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = nil
}

// SetSlots records the value of every slot whose ExpectedEntity matches an
// extracted entity's name, marking it filled (spec.md §4.3).
func (s *Store) SetSlots(entities []Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.context == nil {
		return
	}

	for _, name := range s.context.SlotOrder {
		slot, ok := s.context.Slots[name]
		if !ok || slot.IsFilled {
			continue
		}
		for _, entity := range entities {
			if entity.Name == slot.ExpectedEntity {
				slot.Value = entity.Value
				slot.IsFilled = true
				break
			}
		}
	}
}

// GetNotFilledSlot returns the first unfilled slot in declaration order, or
// nil if every slot is filled (or there are none).
func (s *Store) GetNotFilledSlot() *Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.context == nil {
		return nil
	}
	for _, name := range s.context.SlotOrder {
		if slot, ok := s.context.Slots[name]; ok && !slot.IsFilled {
			return slot
		}
	}
	return nil
}

func (s *Store) AreSlotsAllFilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.context == nil || len(s.context.SlotOrder) == 0 {
		return false
	}
	for _, name := range s.context.SlotOrder {
		if slot, ok := s.context.Slots[name]; !ok || !slot.IsFilled {
			return false
		}
	}
	return true
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
