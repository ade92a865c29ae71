package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	Demo acceptor. Builds an attribute table from the
 *		config, starts the service over the loopback attribute
 *		server, and replays a scripted initiator session:
 *		subscribe, configure codec and QoS, enable, stream,
 *		disable, release. Every notification the service emits
 *		is logged and appended to a timestamped trace file.
 *
 * Usage:	ascs-demo [--config FILE] [--sinks N] [--sources N]
 *		          [--clients N] [--log-level LEVEL]
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

// demoApplication applies every request the service raises, the way a
// real acceptor's audio policy layer would after checking the
// configuration against its capabilities.
type demoApplication struct {
	server  *Server
	caching bool
}

func (a *demoApplication) handleEvent(event []byte) {
	con := EventConHandle(event)
	aseID := EventASEID(event)

	switch EventSubevent(event) {
	case SubeventConnected:
		log.Info("client connected", "con_handle", con, "status", EventStatus(event))
	case SubeventDisconnected:
		log.Info("client disconnected", "con_handle", con)

	case SubeventCodecConfigurationRequest:
		request := EventCodecConfigurationRequest(event)
		a.server.ConfigureCodec(con, aseID, CodecConfiguration{
			Framing:                       FramingUnframed,
			PreferredPHY:                  request.TargetPHY,
			PreferredRetransmissionNumber: 2,
			MaxTransportLatencyMs:         100,
			PresentationDelayMinUs:        10000,
			PresentationDelayMaxUs:        40000,
			CodingFormat:                  request.CodingFormat,
			CompanyID:                     request.CompanyID,
			VendorSpecificCodecID:         request.VendorSpecificCodecID,
			SpecificCodecConfiguration:    request.SpecificCodecConfiguration,
		})

	case SubeventQoSConfigurationRequest:
		a.server.ConfigureQoS(con, aseID, EventQoSConfiguration(event))

	case SubeventMetadataRequest:
		// Raised both by Enable and by Update Metadata; the endpoint
		// state tells the two apart.
		if state, ok := a.server.StreamendpointState(con, aseID); ok && state == StateQoSConfigured {
			a.server.Enable(con, aseID)
		}
		a.server.MetadataUpdate(con, aseID, EventMetadata(event))

	case SubeventStartReady:
		a.server.ReceiverStartReady(con, aseID)
	case SubeventDisable:
		a.server.Disable(con, aseID)
	case SubeventStopReady:
		a.server.ReceiverStopReady(con, aseID)
	case SubeventRelease:
		a.server.Release(con, aseID)
		a.server.Released(con, aseID, a.caching)
	case SubeventReleased:
		a.server.Released(con, aseID, a.caching)
	}
}

// AcceptorDemoMain is the entry point behind cmd/ascs-demo.
func AcceptorDemoMain() {
	var configPath = pflag.StringP("config", "c", "", "YAML config file.")
	var sinks = pflag.Int("sinks", -1, "Number of sink ASEs (overrides config).")
	var sources = pflag.Int("sources", -1, "Number of source ASEs (overrides config).")
	var clients = pflag.Int("clients", -1, "Number of client slots (overrides config).")
	var logLevel = pflag.String("log-level", "", "Log level: debug, info, warn, error.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Audio Stream Control Service demo acceptor\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	config := DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = LoadConfig(*configPath)
		if err != nil {
			log.Fatal("config", "err", err)
		}
	}
	if *sinks >= 0 {
		config.SinkASEs = *sinks
	}
	if *sources >= 0 {
		config.SourceASEs = *sources
	}
	if *clients > 0 {
		config.MaxClients = *clients
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	if level, err := log.ParseLevel(config.LogLevel); err == nil {
		log.SetLevel(level)
		logger.SetLevel(level)
	}

	table := NewAttributeTable()
	table.AddService(UUIDServiceAudioStreamControl)
	for i := 0; i < config.SinkASEs; i++ {
		table.AddCharacteristic(UUIDCharacteristicSinkASE, true)
	}
	for i := 0; i < config.SourceASEs; i++ {
		table.AddCharacteristic(UUIDCharacteristicSourceASE, true)
	}
	table.AddCharacteristic(UUIDCharacteristicASEControl, true)

	loopback := NewLoopbackATT(table)
	characteristics := make([]ASECharacteristic, config.SinkASEs+config.SourceASEs)
	slots := make([]ServerConnection, config.MaxClients)
	server, err := NewServer(loopback, characteristics, slots)
	if err != nil {
		log.Fatal("init", "err", err)
	}

	application := &demoApplication{server: server, caching: config.Caching}
	server.RegisterPacketHandler(application.handleEvent)

	traceName, err := strftime.Format(config.TraceFile, time.Now())
	if err != nil {
		log.Fatal("trace file pattern", "err", err)
	}
	trace, err := os.Create(traceName)
	if err != nil {
		log.Fatal("trace file", "err", err)
	}
	defer trace.Close()
	log.Info("writing trace", "file", traceName)

	const peer ConHandle = 0x0040
	drained := 0
	drain := func(stage string) {
		loopback.DrainSendSlots()
		for _, notification := range loopback.Notifications[drained:] {
			log.Info("notify", "stage", stage, "handle", notification.AttributeHandle,
				"value", fmt.Sprintf("%x", notification.Value))
			fmt.Fprintf(trace, "%-16s handle=0x%04x value=%x\n", stage, notification.AttributeHandle, notification.Value)
		}
		drained = len(loopback.Notifications)
	}

	// Subscribe to the control point and every ASE characteristic.
	for _, characteristic := range server.characteristics {
		server.HandleWrite(peer, characteristic.ClientConfigurationHandle, []byte{0x01, 0x00})
	}
	server.HandleWrite(peer, server.controlPointClientConfigurationHandle, []byte{0x01, 0x00})

	// Configure LC3 48 kHz / 10 ms on every endpoint.
	for _, characteristic := range server.characteristics {
		server.HandleWrite(peer, server.controlPointHandle, []byte{
			byte(OpcodeConfigCodec), 1, characteristic.ASEID,
			TargetLatencyBalancedLatency, TargetPHY2M, CodingFormatLC3, 0x00, 0x00, 0x00, 0x00,
			0x06,
			0x02, CodecConfigurationTypeSamplingFrequency, SamplingFrequencyIndex48000Hz,
			0x02, CodecConfigurationTypeFrameDuration, FrameDurationIndex10000us,
		})
		drain("config-codec")
	}

	// QoS: one CIS per endpoint within a shared CIG.
	for i, characteristic := range server.characteristics {
		request := []byte{byte(OpcodeConfigQoS), 1, characteristic.ASEID}
		qos := QoSConfiguration{
			CIGID: 1, CISID: uint8(i + 1),
			SDUInterval: 10000, Framing: FramingUnframed, PHY: PHYMask2M,
			MaxSDU: 120, RetransmissionNumber: 2, MaxTransportLatencyMs: 20,
			PresentationDelayUs: 20000,
		}
		server.HandleWrite(peer, server.controlPointHandle, qos.appendValue(request))
		drain("config-qos")
	}

	// Enable with streaming context "media", then start source endpoints.
	for _, characteristic := range server.characteristics {
		server.HandleWrite(peer, server.controlPointHandle, []byte{
			byte(OpcodeEnable), 1, characteristic.ASEID,
			0x04, 0x03, MetadataTypeStreamingAudioContexts, 0x04, 0x00,
		})
		drain("enable")
		if characteristic.Role == RoleSource {
			server.HandleWrite(peer, server.controlPointHandle, []byte{
				byte(OpcodeReceiverStartReady), 1, characteristic.ASEID,
			})
			drain("start-ready")
		} else {
			// Sink endpoints start streaming once the acceptor's own
			// receive path is up; no peer opcode is involved.
			server.ReceiverStartReady(peer, characteristic.ASEID)
			drain("sink-streaming")
		}
	}

	// Tear everything down again.
	for _, characteristic := range server.characteristics {
		server.HandleWrite(peer, server.controlPointHandle, []byte{
			byte(OpcodeDisable), 1, characteristic.ASEID,
		})
		drain("disable")
		if characteristic.Role == RoleSource {
			server.HandleWrite(peer, server.controlPointHandle, []byte{
				byte(OpcodeReceiverStopReady), 1, characteristic.ASEID,
			})
			drain("stop-ready")
		}
		server.HandleWrite(peer, server.controlPointHandle, []byte{
			byte(OpcodeRelease), 1, characteristic.ASEID,
		})
		drain("release")
	}

	server.HandleDisconnect(peer)
	server.Deinit()
	log.Info("session complete", "notifications", len(loopback.Notifications))
}
