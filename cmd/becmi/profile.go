package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Profile is the CLI's saved login.
type Profile struct {
	URL      string `toml:"url"`
	Username string `toml:"username,omitempty"`
	Token    string `toml:"token,omitempty"`
}

// profilePath is $BECMI_PROFILE, or ~/.config/becmi/profile.toml.
func profilePath() (string, error) {
	if p := os.Getenv("BECMI_PROFILE"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "becmi", "profile.toml"), nil
}

func loadProfile() (Profile, error) {
	path, err := profilePath()
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if os.IsNotExist(err) {
			return Profile{}, nil
		}
		return Profile{}, err
	}
	return p, nil
}

func saveProfile(p Profile) error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(p)
}
