package state

import (
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9A-Za-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func HostValidator(s string) error {
	if s == "" {
		return fmt.Errorf("host must not be empty")
	}
	if ip := net.ParseIP(s); ip != nil {
		return nil
	}
	return NameValidator(s)
}

func WeightValidator(w int) error {
	if w < 0 {
		return fmt.Errorf("weight %d: %w", w, ErrInvalidWeight)
	}
	return nil
}

func LocalConfigValidator(cfg *LocalCfg) error {
	err := NameValidator(string(cfg.Id))
	if err != nil {
		return err
	}
	err = HostValidator(cfg.Host)
	if err != nil {
		return err
	}
	if cfg.LogPath != "" {
		err = PathValidator(cfg.LogPath)
		if err != nil {
			return fmt.Errorf("log path: %w", err)
		}
	}
	if len(cfg.Neighbours) > MaxNeighbours {
		return fmt.Errorf("%d neighbours configured: %w", len(cfg.Neighbours), ErrNoFreeSlot)
	}
	seen := NewRouterSet(cfg.Id)
	for _, n := range cfg.Neighbours {
		err = NameValidator(string(n.Id))
		if err != nil {
			return err
		}
		if n.Id == cfg.Id {
			return fmt.Errorf("neighbour %s: %w", n.Id, ErrSelfAttach)
		}
		if seen.Contains(n.Id) {
			return fmt.Errorf("neighbour %s: %w", n.Id, ErrAlreadyNeighbour)
		}
		seen.Add(n.Id)
		err = HostValidator(n.Host)
		if err != nil {
			return err
		}
		if n.Port == 0 {
			return fmt.Errorf("neighbour %s has no port", n.Id)
		}
		err = WeightValidator(n.Weight)
		if err != nil {
			return err
		}
	}
	return nil
}
