// Package availability models the availability topics of a device or entity.
//
// A Set is an ordered list of Items, each naming a topic whose payload says
// whether the device is reachable, plus a Mode that tells the hub how to
// combine several topics. Sets are composed bottom-up during discovery:
// connection-level items are merged into device sets, device items into
// entity sets. Merging never overwrites an item that is already present.
//
// # Usage
//
//	set := availability.NewSet()
//	if err := set.Add("sensors/kitchen/lwt"); err != nil {
//	    return err
//	}
//	set.SetMode(availability.ModeAll)
package availability
