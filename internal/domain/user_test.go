package domain

import "testing"

func TestNewUser(t *testing.T) {
	// Test valid user creation
	user, err := NewUser("user_2abc", Profile{Email: "test@example.com", Name: "Test"}, DefaultStartingBalance)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.Points != DefaultStartingBalance {
		t.Errorf("Expected %d points, got %d", DefaultStartingBalance, user.Points)
	}

	if user.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", user.Email)
	}

	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}

	// Test empty ID
	_, err = NewUser("  ", Profile{}, 0)
	if err != ErrEmptyUserID {
		t.Errorf("Expected ErrEmptyUserID, got %v", err)
	}

	// Test negative balance
	_, err = NewUser("user_2abc", Profile{}, -1)
	if err != ErrNegativePoints {
		t.Errorf("Expected ErrNegativePoints, got %v", err)
	}
}
