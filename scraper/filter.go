package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pevans/presscorner/browser"
)

// open loads the portal entry page and waits for the filter panel.
func (s *Scraper) open(ctx context.Context) error {
	s.logger.Debug("parser enter", "url", s.config.Host)

	if err := s.session.Navigate(ctx, s.config.Host); err != nil {
		return err
	}

	if err := s.session.WaitPresent(ctx, s.config.Selectors.MoreCriteria, s.config.SettleTimeout); err != nil {
		return fmt.Errorf("more criteria control: %w", err)
	}

	return nil
}

// applyFilters selects the configured policy areas and submits the search
// form. Every control is required; a missing one is fatal.
func (s *Scraper) applyFilters(ctx context.Context) error {
	sel := s.config.Selectors

	more, err := s.session.Find(ctx, sel.MoreCriteria)
	if err != nil {
		return fmt.Errorf("more criteria control: %w", err)
	}
	if err := more.Click(ctx); err != nil {
		return fmt.Errorf("more criteria control: %w", err)
	}

	if err := s.session.WaitPresent(ctx, sel.PolicyList, s.config.SettleTimeout); err != nil {
		return fmt.Errorf("policy area list: %w", err)
	}
	policyList, err := s.session.Find(ctx, sel.PolicyList)
	if err != nil {
		return fmt.Errorf("policy area list: %w", err)
	}

	// Open the multi-select.
	if err := scrollAndClick(ctx, policyList); err != nil {
		return fmt.Errorf("policy area list: %w", err)
	}

	if len(s.config.Policies) > 0 {
		if err := s.selectPolicies(ctx); err != nil {
			return err
		}
	}

	// Close it again so that it does not cover the submit button.
	if err := scrollAndClick(ctx, policyList); err != nil {
		return fmt.Errorf("policy area list: %w", err)
	}

	submit, err := s.session.Find(ctx, sel.Submit)
	if err != nil {
		return fmt.Errorf("submit button: %w", err)
	}
	if err := scrollAndClick(ctx, submit); err != nil {
		return fmt.Errorf("submit button: %w", err)
	}

	return s.settle(ctx, "search results", func(ctx context.Context) (bool, error) {
		items, err := s.session.FindAll(ctx, sel.ListItem)
		return len(items) > 0, err
	})
}

// selectPolicies ticks every checkbox whose label exactly matches one of
// the configured policies.
func (s *Scraper) selectPolicies(ctx context.Context) error {
	sel := s.config.Selectors

	if err := s.session.WaitPresent(ctx, sel.PolicyCheckbox, s.config.SettleTimeout); err != nil {
		return fmt.Errorf("policy area checkboxes: %w", err)
	}
	checkboxes, err := s.session.FindAll(ctx, sel.PolicyCheckbox)
	if err != nil {
		return fmt.Errorf("policy area checkboxes: %w", err)
	}

	wanted := make(map[string]bool, len(s.config.Policies))
	for _, p := range s.config.Policies {
		wanted[p] = false
	}

	for _, cb := range checkboxes {
		label, err := cb.Text(ctx)
		if err != nil {
			return fmt.Errorf("policy area checkbox: %w", err)
		}
		label = normalizeSpace(label)
		s.logger.Debug("policy area", "label", label)

		selected, ok := wanted[label]
		if !ok || selected {
			continue
		}
		if err := s.tick(ctx, cb); err != nil {
			return fmt.Errorf("policy area %q: %w", label, err)
		}
		wanted[label] = true
	}

	for _, p := range s.config.Policies {
		if !wanted[p] {
			s.logger.Warn("policy area not offered by the portal", "policy", p)
		}
	}

	return nil
}

// tick clicks the label of a policy checkbox with the mouse. A script click
// on the wrapper would not reach the input.
func (s *Scraper) tick(ctx context.Context, checkbox browser.Element) error {
	if s.config.Selectors.PolicyLabel == "" {
		return checkbox.MouseClick(ctx)
	}

	target, err := checkbox.Find(ctx, s.config.Selectors.PolicyLabel)
	if isNotFound(err) {
		target = checkbox
	} else if err != nil {
		return err
	}
	return target.MouseClick(ctx)
}

func scrollAndClick(ctx context.Context, el browser.Element) error {
	if err := el.ScrollIntoView(ctx); err != nil {
		return err
	}
	return el.Click(ctx)
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isNotFound reports whether err is a lookup miss rather than a browser
// failure.
func isNotFound(err error) bool {
	return errors.Is(err, browser.ErrNotFound)
}
