package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/internal/utils"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/jrsteele09/go-reserve-client/session"
	"github.com/jrsteele09/go-reserve-client/token/jwt"
)

var errNotLoggedIn = errors.New("not logged in, run: reservecli login -email EMAIL -password PASSWORD")

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func requireLogin(a *app) error {
	if !a.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	me := a.session.User()
	fmt.Fprintf(a.out, "Logged in as %s <%s> (%s)\n", me.Name, me.Email, me.Role)
	return nil
}

func logoutCmd(ctx context.Context, a *app, args []string) error {
	if err := requireLogin(a); err != nil {
		return err
	}
	if err := a.session.Logout(ctx, session.ReasonManual); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func meCmd(ctx context.Context, a *app, args []string) error {
	if err := requireLogin(a); err != nil {
		return err
	}
	me := a.session.User()
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%d\n", me.ID)
	fmt.Fprintf(w, "Name\t%s\n", me.Name)
	fmt.Fprintf(w, "Email\t%s\n", me.Email)
	fmt.Fprintf(w, "Role\t%s\n", me.Role)
	if me.CreatedAt != "" {
		fmt.Fprintf(w, "Joined\t%s\n", me.CreatedAt)
	}
	return w.Flush()
}

func signupCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("signup")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "at least 8 characters with a letter and a digit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := api.SignupRequest{Name: *name, Email: *email, Password: *password}
	if err := a.session.Signup(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed up. You can log in now.")
	return nil
}

func restaurantsCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("restaurants")
	keyword := fs.String("keyword", "", "name or address keyword")
	category := fs.String("category", api.CategoryAll, "category, ALL for every category")
	region := fs.String("region", api.RegionAll, "region, one of "+strings.Join(api.Regions, " "))
	page := fs.Int("page", 0, "zero based page")
	size := fs.Int("size", api.DefaultPageSize, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.client.ListRestaurants(ctx, api.RestaurantQuery{
		Keyword:    *keyword,
		Category:   *category,
		PageParams: api.PageParams{Page: *page, Size: *size},
	})
	if err != nil {
		return err
	}
	list := api.FilterByRegion(result.Content, *region)
	printRestaurants(a.out, list)
	fmt.Fprintf(a.out, "\nPage %d of %d, %d restaurants\n", result.Number+1, result.TotalPages, result.TotalElements)
	return nil
}

func nearbyCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("nearby")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	radius := fs.Float64("radius", 3, "radius in km")
	keyword := fs.String("keyword", "", "name or address keyword")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.client.NearbyRestaurants(ctx, api.NearbyQuery{
		Lat:             *lat,
		Lng:             *lng,
		RadiusKm:        *radius,
		RestaurantQuery: api.RestaurantQuery{Keyword: *keyword},
	})
	if err != nil {
		return err
	}
	printRestaurants(a.out, result.Content)
	return nil
}

func printRestaurants(out io.Writer, list []api.Restaurant) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No restaurants found")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tRATING\tDISTANCE\tADDRESS")
	for _, r := range list {
		rating, distance := "-", "-"
		if score := utils.ValueOr(r.Rating, -1); score >= 0 {
			rating = fmt.Sprintf("%.1f", score)
		}
		if r.Distance != nil {
			distance = fmt.Sprintf("%.2fkm", *r.Distance)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Category, rating, distance, r.Address)
	}
	_ = w.Flush()
}

func restaurantCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("restaurant")
	id := fs.Int64("id", 0, "restaurant id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := a.client.GetRestaurant(ctx, *id)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s\n", r.Name)
	fmt.Fprintf(w, "Address\t%s\n", r.Address)
	fmt.Fprintf(w, "Category\t%s\n", r.Category)
	fmt.Fprintf(w, "Hours\t%s\n", r.OpeningHours)
	fmt.Fprintf(w, "Phone\t%s\n", r.Phone)
	fmt.Fprintf(w, "Price\t%s\n", r.PriceRange)
	fmt.Fprintf(w, "Max party\t%d\n", r.MaxPeople())
	if img := r.Image(); img != "" {
		fmt.Fprintf(w, "Image\t%s\n", img)
	}
	return w.Flush()
}

func reserveCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("reserve")
	restaurantID := fs.Int64("restaurant", 0, "restaurant id")
	date := fs.String("date", "", "YYYY-MM-DD")
	clock := fs.String("time", api.DefaultReservationTime, "HH:MM")
	people := fs.Int("people", 2, "party size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireLogin(a); err != nil {
		return err
	}

	r, err := a.client.GetRestaurant(ctx, *restaurantID)
	if err != nil {
		return err
	}
	res, err := a.client.Reserve(ctx, r, api.ReservationRequest{
		ReservationDate: *date,
		ReservationTime: *clock,
		PeopleCount:     *people,
	}, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reserved #%d: %s on %s at %s for %d\n", res.ReservationID, r.Name, res.ReservationDate, res.Time(), res.PeopleCount)
	return nil
}

func reservationsCmd(ctx context.Context, a *app, args []string) error {
	if err := requireLogin(a); err != nil {
		return err
	}
	page, err := a.client.MyReservations(ctx, api.PageParams{Size: 100})
	if err != nil {
		return err
	}

	upcoming, past := api.SplitUpcoming(page.Content, time.Now())
	printReservations(a.out, "Upcoming", upcoming)
	fmt.Fprintln(a.out)
	printReservations(a.out, "Past", past)
	return nil
}

func printReservations(out io.Writer, title string, list []api.Reservation) {
	fmt.Fprintf(out, "%s (%d)\n", title, len(list))
	if len(list) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRESTAURANT\tDATE\tTIME\tPEOPLE")
	for _, r := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", r.ReservationID, r.RestaurantName, r.ReservationDate, r.Time(), r.PeopleCount)
	}
	_ = w.Flush()
}

func cancelCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("cancel")
	id := fs.Int64("id", 0, "reservation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireLogin(a); err != nil {
		return err
	}
	if err := a.client.CancelReservation(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cancelled reservation #%d\n", *id)
	return nil
}

func adminImportCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("admin-import")
	keyword := fs.String("keyword", "", "search keyword for the map provider")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireLogin(a); err != nil {
		return err
	}

	msg, err := a.client.ImportRestaurants(ctx, *keyword)
	if err != nil {
		return err
	}
	if n, ok := api.ParseSavedCount(msg); ok {
		fmt.Fprintf(a.out, "Imported %d restaurants\n", n)
		return nil
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func adminMembersCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("admin-members")
	keyword := fs.String("keyword", "", "filter by email, name, role or status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireLogin(a); err != nil {
		return err
	}

	list, err := a.client.ListMembers(ctx)
	if err != nil {
		return err
	}
	list = members.Filter(list, *keyword)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, m := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.ID, m.Name, m.Email, m.Role)
	}
	return w.Flush()
}

func statusCmd(ctx context.Context, a *app, args []string) error {
	displayAppname(a.out, a.config.GetAppName())
	snap := a.session.Snapshot()

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Backend\t%s\n", a.client.BaseURL())
	fmt.Fprintf(w, "Session\t%s\n", snap.State)
	if snap.User != nil {
		fmt.Fprintf(w, "Member\t%s <%s> (%s)\n", snap.User.Name, snap.User.Email, snap.User.Role)
	}
	if token, err := a.session.Token(); err == nil && !token.Expiry.IsZero() {
		fmt.Fprintf(w, "Access token expires\t%s (in %s)\n", token.Expiry.Format(time.RFC3339), time.Until(token.Expiry).Round(time.Second))
		if claims, err := jwt.Decode(token.AccessToken); err == nil && claims.ID != "" {
			fmt.Fprintf(w, "Token ID\t%s\n", claims.ID)
		}
	}
	if next := a.session.NextRenewal(); !next.IsZero() {
		fmt.Fprintf(w, "Next renewal\t%s\n", next.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Token file\t%s\n", a.config.GetTokenFile())
	return w.Flush()
}
