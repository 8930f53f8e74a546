package animals_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"pet_adoption/internal/animals"
	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

type fakeStorage struct {
	nextID  int64
	animals map[int64]models.Animal
}

func (f *fakeStorage) SaveAnimal(_ context.Context, a models.Animal) (int64, error) {
	f.nextID++
	a.ID = f.nextID
	f.animals[a.ID] = a
	return a.ID, nil
}

func (f *fakeStorage) Animal(_ context.Context, id int64) (models.Animal, error) {
	a, ok := f.animals[id]
	if !ok {
		return models.Animal{}, storage.ErrAnimalNotFound
	}
	return a, nil
}

func (f *fakeStorage) Animals(_ context.Context) ([]models.Animal, error) {
	out := make([]models.Animal, 0, len(f.animals))
	for _, a := range f.animals {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStorage) UpdateAnimal(_ context.Context, a models.Animal) error {
	cur, ok := f.animals[a.ID]
	if !ok {
		return storage.ErrAnimalNotFound
	}
	cur.Age, cur.Gender, cur.Type, cur.Name = a.Age, a.Gender, a.Type, a.Name
	f.animals[a.ID] = cur
	return nil
}

func (f *fakeStorage) SetAdoptionState(_ context.Context, id int64, state models.AdoptionState, ownerID *int64) error {
	cur, ok := f.animals[id]
	if !ok {
		return storage.ErrAnimalNotFound
	}
	cur.AdoptionState, cur.OwnerID = state, ownerID
	f.animals[id] = cur
	return nil
}

func (f *fakeStorage) DeleteAnimal(_ context.Context, id int64) error {
	if _, ok := f.animals[id]; !ok {
		return storage.ErrAnimalNotFound
	}
	delete(f.animals, id)
	return nil
}

type fakeUsers map[int64]models.User

func (f fakeUsers) UserByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range f {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, storage.ErrUserNotFound
}

func (f fakeUsers) UserByID(_ context.Context, id int64) (models.User, error) {
	u, ok := f[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

type acceptedMail struct{ to, animal string }

type fakeNotifier struct {
	sent []acceptedMail
}

func (n *fakeNotifier) SendAdoptionAccepted(_ context.Context, to, animalName string) {
	n.sent = append(n.sent, acceptedMail{to: to, animal: animalName})
}

func setup(t *testing.T) (*animals.Service, *fakeStorage, *fakeNotifier) {
	t.Helper()

	st := &fakeStorage{animals: map[int64]models.Animal{}}
	users := fakeUsers{
		7: {ID: 7, Username: "alice", Email: "alice@example.com"},
	}
	n := &fakeNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return animals.New(log, st, users, n), st, n
}

func TestCreateStartsOpenForAdoption(t *testing.T) {
	svc, _, _ := setup(t)
	owner := int64(7)

	a, err := svc.Create(context.Background(), models.Animal{
		Name: "Pepper", Age: 2, Gender: models.GenderFemale, Type: "Cat",
		AdoptionState: models.AdoptionPending, OwnerID: &owner,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if a.ID == 0 || a.AdoptionState != models.AdoptionNone || a.OwnerID != nil || a.Req() != 0 {
		t.Fatalf("unexpected animal %+v", a)
	}
}

func TestRequestThenDenyClearsRequest(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, models.Animal{Name: "Nova", Gender: models.GenderMale})

	requested, err := svc.RequestAdoption(ctx, a.ID, "alice")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if requested.Req() != 1 || requested.OwnerID == nil || *requested.OwnerID != 7 {
		t.Fatalf("unexpected requested animal %+v", requested)
	}

	denied, err := svc.DenyAdoption(ctx, a.ID)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if denied.Req() != 0 || denied.OwnerID != nil || denied.AdoptionState != models.AdoptionDenied {
		t.Fatalf("unexpected denied animal %+v", denied)
	}
}

func TestRequestAdoptionUnknownUser(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, models.Animal{Name: "Nova", Gender: models.GenderMale})

	if _, err := svc.RequestAdoption(ctx, a.ID, "ghost"); !errors.Is(err, animals.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAcceptAdoptionNotifiesAndDeletes(t *testing.T) {
	svc, st, n := setup(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, models.Animal{Name: "Pepper", Gender: models.GenderFemale})
	if _, err := svc.RequestAdoption(ctx, a.ID, "alice"); err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := svc.AcceptAdoption(ctx, a.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, ok := st.animals[a.ID]; ok {
		t.Fatal("animal must be deleted")
	}
	if len(n.sent) != 1 || n.sent[0] != (acceptedMail{to: "alice@example.com", animal: "Pepper"}) {
		t.Fatalf("unexpected mails %+v", n.sent)
	}
}

func TestAcceptAdoptionWithoutOwnerStillDeletes(t *testing.T) {
	svc, st, n := setup(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, models.Animal{Name: "Pepper", Gender: models.GenderFemale})
	ghost := int64(404)
	st.animals[a.ID] = models.Animal{ID: a.ID, Name: "Pepper", AdoptionState: models.AdoptionPending, OwnerID: &ghost}

	if err := svc.AcceptAdoption(ctx, a.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(st.animals) != 0 || len(n.sent) != 0 {
		t.Fatalf("expected deletion without mail, animals=%v mails=%v", st.animals, n.sent)
	}
}

func TestNotFound(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["get"] = svc.Get(ctx, 1)
	_, checks["update"] = svc.Update(ctx, 1, models.Animal{Gender: models.GenderMale})
	checks["delete"] = svc.Delete(ctx, 1)
	_, checks["request"] = svc.RequestAdoption(ctx, 1, "alice")
	_, checks["deny"] = svc.DenyAdoption(ctx, 1)
	checks["accept"] = svc.AcceptAdoption(ctx, 1)

	for name, err := range checks {
		if !errors.Is(err, animals.ErrAnimalNotFound) {
			t.Errorf("%s: expected ErrAnimalNotFound, got %v", name, err)
		}
	}
}

func TestUpdateKeepsAdoptionState(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, models.Animal{Name: "Pepper", Age: 2, Gender: models.GenderFemale, Type: "Cat"})
	if _, err := svc.RequestAdoption(ctx, a.ID, "alice"); err != nil {
		t.Fatalf("request: %v", err)
	}

	updated, err := svc.Update(ctx, a.ID, models.Animal{Name: "Pepper", Age: 3, Gender: models.GenderFemale, Type: "Cat"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Age != 3 || updated.AdoptionState != models.AdoptionPending {
		t.Fatalf("unexpected animal %+v", updated)
	}
}
