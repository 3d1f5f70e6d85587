package member_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/member"
)

func validAddressForm() member.AddressForm {
	return member.AddressForm{
		Type:     "home",
		Name:     "Asha Rao",
		Address:  "12 MG Road",
		Locality: "Indiranagar",
		City:     "Bengaluru",
		State:    "karnataka",
		Pincode:  "560038",
	}
}

func TestAddAddressValidation(t *testing.T) {
	svc := newTestService(t, newMemoryDocs(), &fakeGateway{})

	cases := []struct {
		name   string
		mutate func(*member.AddressForm)
		field  string
	}{
		{name: "missing name", mutate: func(f *member.AddressForm) { f.Name = " " }, field: "name"},
		{name: "missing street", mutate: func(f *member.AddressForm) { f.Address = "" }, field: "address"},
		{name: "missing locality", mutate: func(f *member.AddressForm) { f.Locality = "" }, field: "locality"},
		{name: "missing city", mutate: func(f *member.AddressForm) { f.City = "" }, field: "city"},
		{name: "missing state", mutate: func(f *member.AddressForm) { f.State = "" }, field: "state"},
		{name: "short pincode", mutate: func(f *member.AddressForm) { f.Pincode = "5600" }, field: "pincode"},
		{name: "non-numeric pincode", mutate: func(f *member.AddressForm) { f.Pincode = "56OO38" }, field: "pincode"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validAddressForm()
			tc.mutate(&form)
			_, err := svc.AddAddress(context.Background(), memberSession, form)
			var validation *member.ValidationError
			require.ErrorAs(t, err, &validation)
			require.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestAddAddressAndList(t *testing.T) {
	docs := newMemoryDocs()
	svc := newTestService(t, docs, &fakeGateway{})

	first, err := svc.AddAddress(context.Background(), memberSession, validAddressForm())
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, "home", first.Type)
	require.NotEmpty(t, first.CreatedAt)

	work := validAddressForm()
	work.Type = "Work"
	work.Address = "1 Tech Park"
	second, err := svc.AddAddress(context.Background(), memberSession, work)
	require.NoError(t, err)
	require.Equal(t, "work", second.Type)
	require.NotEqual(t, first.ID, second.ID)

	addresses, err := svc.Addresses(context.Background(), memberSession)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	require.Equal(t, first.ID, addresses[0].ID)
	require.Equal(t, second.ID, addresses[1].ID)
}

func TestAddAddressDefaultsType(t *testing.T) {
	svc := newTestService(t, newMemoryDocs(), &fakeGateway{})

	form := validAddressForm()
	form.Type = ""
	address, err := svc.AddAddress(context.Background(), memberSession, form)
	require.NoError(t, err)
	require.Equal(t, "home", address.Type)
}

func TestAddressesEmptyBook(t *testing.T) {
	svc := newTestService(t, newMemoryDocs(), &fakeGateway{})

	addresses, err := svc.Addresses(context.Background(), memberSession)
	require.NoError(t, err)
	require.Empty(t, addresses)
}

func TestDeleteAddress(t *testing.T) {
	docs := newMemoryDocs()
	svc := newTestService(t, docs, &fakeGateway{})

	kept, err := svc.AddAddress(context.Background(), memberSession, validAddressForm())
	require.NoError(t, err)
	removed, err := svc.AddAddress(context.Background(), memberSession, validAddressForm())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAddress(context.Background(), memberSession, removed.ID))

	addresses, err := svc.Addresses(context.Background(), memberSession)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	require.Equal(t, kept.ID, addresses[0].ID)
}

func TestDeleteAddressUnknownID(t *testing.T) {
	svc := newTestService(t, newMemoryDocs(), &fakeGateway{})

	_, err := svc.AddAddress(context.Background(), memberSession, validAddressForm())
	require.NoError(t, err)

	err = svc.DeleteAddress(context.Background(), memberSession, "addr-nope")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}
