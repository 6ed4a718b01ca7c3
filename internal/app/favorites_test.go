package app_test

import (
	"context"
	"sync"
	"testing"

	"study-vault/internal/domain"
)

func TestToggleLikeTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.signup(t, "tina", domain.RoleTeacher)
	student := f.signup(t, "sam", domain.RoleStudent)
	up := f.published(t, student.ID, teacher.ID, f.subject(t, teacher.ID).ID, "")

	liked, err := f.favorites.Toggle(ctx, student.ID, up.Resource.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if liked.Outcome != domain.Liked || liked.Likes != 1 || !liked.User.HasLiked(up.Resource.ID) {
		t.Fatalf("unexpected like result %+v", liked)
	}

	unliked, err := f.favorites.Toggle(ctx, student.ID, up.Resource.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if unliked.Outcome != domain.Unliked || unliked.Likes != 0 || unliked.User.HasLiked(up.Resource.ID) {
		t.Fatalf("unexpected unlike result %+v", unliked)
	}
	if likes := f.resource(t, up.Resource.ID).Likes; likes != 0 {
		t.Fatalf("expected 0 stored likes, got %d", likes)
	}
}

func TestAddAndRemoveAreIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.signup(t, "tina", domain.RoleTeacher)
	student := f.signup(t, "sam", domain.RoleStudent)
	up := f.published(t, student.ID, teacher.ID, f.subject(t, teacher.ID).ID, "")

	removed, err := f.favorites.Remove(ctx, student.ID, up.Resource.ID)
	if err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if removed.Outcome != domain.Unliked || removed.Likes != 0 {
		t.Fatalf("unexpected remove result %+v", removed)
	}

	for i := 0; i < 2; i++ {
		added, err := f.favorites.Add(ctx, student.ID, up.Resource.ID)
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if added.Outcome != domain.Liked || added.Likes != 1 {
			t.Fatalf("add %d: unexpected result %+v", i, added)
		}
	}
	if liked := f.user(t, student.ID).Liked; len(liked) != 1 || liked[0] != up.Resource.ID {
		t.Fatalf("unexpected liked set %v", liked)
	}

	for i := 0; i < 2; i++ {
		removed, err = f.favorites.Remove(ctx, student.ID, up.Resource.ID)
		if err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
		if removed.Outcome != domain.Unliked || removed.Likes != 0 {
			t.Fatalf("remove %d: unexpected result %+v", i, removed)
		}
	}
}

func TestLikeUnknownRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.signup(t, "tina", domain.RoleTeacher)
	student := f.signup(t, "sam", domain.RoleStudent)
	up := f.published(t, student.ID, teacher.ID, f.subject(t, teacher.ID).ID, "")

	_, err := f.favorites.Toggle(ctx, student.ID, "missing")
	expectErr(t, err, domain.ErrResourceNotFound)
	_, err = f.favorites.Toggle(ctx, "ghost", up.Resource.ID)
	expectErr(t, err, domain.ErrUserNotFound)
	if likes := f.resource(t, up.Resource.ID).Likes; likes != 0 {
		t.Fatalf("failed likes changed the counter to %d", likes)
	}
}

func TestLikesNeedPublicResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.signup(t, "tina", domain.RoleTeacher)
	alice := f.signup(t, "alice", domain.RoleStudent)
	bob := f.signup(t, "bob", domain.RoleStudent)
	subject := f.subject(t, teacher.ID)

	private := f.upload(t, alice.ID, subject.ID, false, "")
	pending := f.upload(t, alice.ID, subject.ID, true, "")

	for _, id := range []string{private.Resource.ID, pending.Resource.ID} {
		_, err := f.favorites.Toggle(ctx, bob.ID, id)
		expectErr(t, err, domain.ErrResourceNotFound)
		_, err = f.favorites.Add(ctx, bob.ID, id)
		expectErr(t, err, domain.ErrResourceNotFound)
		_, err = f.favorites.Toggle(ctx, alice.ID, id)
		expectErr(t, err, domain.ErrNotPublic)
		if likes := f.resource(t, id).Likes; likes != 0 {
			t.Fatalf("refused like changed the counter of %s to %d", id, likes)
		}
	}
	if liked := f.user(t, bob.ID).Liked; len(liked) != 0 {
		t.Fatalf("refused likes reached the liked set: %v", liked)
	}
}

func TestLikeCanBeRemovedAfterResourceGoesPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.signup(t, "tina", domain.RoleTeacher)
	alice := f.signup(t, "alice", domain.RoleStudent)
	bob := f.signup(t, "bob", domain.RoleStudent)
	up := f.published(t, alice.ID, teacher.ID, f.subject(t, teacher.ID).ID, "")

	if _, err := f.favorites.Add(ctx, bob.ID, up.Resource.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := f.resources.TogglePrivacy(ctx, alice.ID, up.Resource.ID, true); err != nil {
		t.Fatalf("make private: %v", err)
	}

	removed, err := f.favorites.Remove(ctx, bob.ID, up.Resource.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Outcome != domain.Unliked || removed.Likes != 0 || removed.User.HasLiked(up.Resource.ID) {
		t.Fatalf("unexpected remove result %+v", removed)
	}
}

func TestConcurrentLikesKeepCounterConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.signup(t, "tina", domain.RoleTeacher)
	author := f.signup(t, "sam", domain.RoleStudent)
	up := f.published(t, author.ID, teacher.ID, f.subject(t, teacher.ID).ID, "")

	var users []domain.User
	for _, name := range []string{"ann", "ben", "cat", "dan", "eve"} {
		users = append(users, f.signup(t, name, domain.RoleStudent))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(users))
	for _, u := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.favorites.Toggle(ctx, id, up.Resource.ID)
			errs <- err
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent like: %v", err)
		}
	}

	if likes := f.resource(t, up.Resource.ID).Likes; likes != len(users) {
		t.Fatalf("expected %d likes, got %d", len(users), likes)
	}
}
