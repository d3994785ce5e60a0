package agent

import (
	"fmt"

	"github.com/nerrad567/hadiscovery/internal/availability"
	"github.com/nerrad567/hadiscovery/internal/discovery"
	"github.com/nerrad567/hadiscovery/internal/hostid"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/mqtt"
)

func (a *Agent) buildDevice(dc config.DeviceConfig) (*discovery.Device, error) {
	dev := discovery.NewDevice(dc.Name)

	if dc.Host && a.host != nil {
		facts := *a.host
		if dc.SerialNumber != "" {
			facts.Serial = ""
		}
		if err := hostid.Apply(dev, facts); err != nil {
			return nil, err
		}
	}

	if len(dc.Identifiers) > 0 {
		if err := dev.SetIdentifiers(dc.Identifiers...); err != nil {
			return nil, err
		}
	}
	if dc.SerialNumber != "" {
		if err := dev.SetSerialNumber(dc.SerialNumber); err != nil {
			return nil, err
		}
	}
	if len(dev.Identifiers()) == 0 {
		return nil, ErrNoHostIdentity
	}

	dev.SetManufacturer(dc.Manufacturer)
	dev.SetModel(dc.Model)
	dev.SetModelID(dc.ModelID)
	dev.SetHWVersion(dc.HWVersion)
	dev.SetSWVersion(dc.SWVersion)
	dev.SetConfigurationURL(dc.ConfigurationURL)
	dev.SetSuggestedArea(dc.SuggestedArea)
	if dc.ViaDevice != "" {
		if err := dev.SetViaDevice(dc.ViaDevice); err != nil {
			return nil, err
		}
	}

	for _, c := range dc.Connections {
		if err := dev.AddConnection(c.Type, c.Value); err != nil {
			return nil, err
		}
	}

	var deviceQoS discovery.QoS
	if dc.QoS != nil {
		deviceQoS = discovery.QoS(*dc.QoS)
		if err := dev.SetQoS(deviceQoS); err != nil {
			return nil, err
		}
	}
	if dc.Encoding != nil {
		dev.SetEncoding(*dc.Encoding)
	}
	if err := applyAvailability(dev.Availability(), dc.Availability, dc.AvailabilityMode); err != nil {
		return nil, err
	}

	deviceSlug := discovery.Slugify(dc.Name)
	entities := make([]*discovery.Entity, 0, len(dc.Entities))
	for j, ec := range dc.Entities {
		ent, err := a.buildEntity(deviceSlug, deviceQoS, ec)
		if err != nil {
			return nil, fmt.Errorf("entities[%d] %q: %w", j, ec.Name, err)
		}
		entities = append(entities, ent)
	}
	if err := dev.AddEntities(entities...); err != nil {
		return nil, err
	}

	return dev, nil
}

func (a *Agent) buildEntity(deviceSlug string, deviceQoS discovery.QoS, ec config.EntityConfig) (*discovery.Entity, error) {
	component, err := discovery.ParseComponent(ec.Component)
	if err != nil {
		return nil, err
	}
	ent, err := discovery.NewEntity(component, ec.Name)
	if err != nil {
		return nil, err
	}

	qos := deviceQoS
	if ec.QoS != nil {
		qos = discovery.QoS(*ec.QoS)
		if err := ent.SetQoS(qos); err != nil {
			return nil, err
		}
	}
	if ec.Encoding != nil {
		ent.SetEncoding(*ec.Encoding)
	}

	stateTopic := ec.StateTopic
	if stateTopic == "" && len(ec.Command) > 0 {
		stateTopic = mqtt.Topics{}.State(deviceSlug, discovery.Slugify(ec.Name))
	}

	setters := []struct {
		value string
		set   func(string) error
	}{
		{stateTopic, ent.SetStateTopic},
		{ec.CommandTopic, ent.SetCommandTopic},
		{ec.ObjectID, ent.SetObjectID},
		{ec.UnitOfMeasurement, ent.SetUnitOfMeasurement},
		{ec.DeviceClass, ent.SetDeviceClass},
		{ec.StateClass, ent.SetStateClass},
		{ec.Icon, ent.SetIcon},
		{ec.ValueTemplate, ent.SetValueTemplate},
		{ec.EntityCategory, func(v string) error {
			return ent.SetEntityCategory(discovery.EntityCategory(v))
		}},
	}
	for _, s := range setters {
		if s.value == "" {
			continue
		}
		if err := s.set(s.value); err != nil {
			return nil, err
		}
	}

	for key, value := range ec.Options {
		if err := ent.SetOption(key, value); err != nil {
			return nil, err
		}
	}

	if err := applyAvailability(ent.Availability(), ec.Availability, ec.AvailabilityMode); err != nil {
		return nil, err
	}

	if len(ec.Command) > 0 {
		timeout := ec.Timeout
		if timeout <= 0 {
			timeout = DefaultProbeTimeout
		}
		p := &probe{
			device:     deviceSlug,
			entity:     discovery.Slugify(ec.Name),
			command:    ec.Command,
			stateTopic: stateTopic,
			qos:        byte(qos),
			timeout:    timeout,
			runner:     a.runner,
			recorder:   a.recorder,
			metrics:    a.metrics,
			logger:     a.logger,
		}
		ent.AddSchedule(ec.Interval, p.run)
		ent.OnBirth(p.run)
	}

	return ent, nil
}

func applyAvailability(set *availability.Set, items []config.AvailabilityConfig, mode string) error {
	for _, item := range items {
		var opts []availability.ItemOption
		if item.PayloadAvailable != "" || item.PayloadNotAvailable != "" {
			available, notAvailable := item.PayloadAvailable, item.PayloadNotAvailable
			if available == "" {
				available = availability.DefaultPayloadAvailable
			}
			if notAvailable == "" {
				notAvailable = availability.DefaultPayloadNotAvailable
			}
			opts = append(opts, availability.WithPayloads(available, notAvailable))
		}
		if item.ValueTemplate != "" {
			opts = append(opts, availability.WithValueTemplate(item.ValueTemplate))
		}
		if err := set.Add(item.Topic, opts...); err != nil {
			return err
		}
	}
	if mode != "" {
		if err := set.SetMode(availability.Mode(mode)); err != nil {
			return err
		}
	}
	return nil
}
