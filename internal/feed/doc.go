// Package feed ties the codec, connection manager, subscription registry
// and price cache into one explicitly owned session.
//
// A Session is created with a credential provider and an initial desired
// set, started, and eventually closed by its owner. All protocol handling
// runs on the connection manager's loop; consumers only touch the session
// through SetDesired, Prices, IsConnected and Status.
//
// Example:
//
//	s := feed.New(cfg, auth.Env("STOCKFEED_TOKEN"), []model.Key{
//		model.NewKey("RELIANCE", "india_nse"),
//	}, feed.WithLogger(logger))
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	defer s.Close(context.Background())
//
//	rec, ok := s.Prices().Get("RELIANCE", "india_nse")
package feed
