package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "salon.v1.Appointments"

type CreateAppointmentRequest struct {
	ServiceID int64  `json:"service_id"`
	DateTime  string `json:"date_time"`
}

type ListAppointmentsRequest struct{}

type RescheduleAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
	DateTime      string `json:"date_time"`
}

type CancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// Appointment is the stored state returned by mutating calls.
type Appointment struct {
	ID        string `json:"id"`
	ServiceID int64  `json:"service_id"`
	DateTime  string `json:"date_time"`
	Status    string `json:"status"`
}

// AppointmentListing is one row of ListAppointments.
type AppointmentListing struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Service  string `json:"service"`
	DateTime string `json:"date_time"`
	Status   string `json:"status"`
}

type AppointmentResponse struct {
	Appointment Appointment `json:"appointment"`
}

type ListAppointmentsResponse struct {
	Appointments []AppointmentListing `json:"appointments"`
}

// AppointmentsAPI is the server side of salon.v1.Appointments.
type AppointmentsAPI interface {
	CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*AppointmentResponse, error)
	ListAppointments(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*AppointmentResponse, error)
	CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*AppointmentResponse, error)
}

var appointmentsServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AppointmentsAPI)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateAppointment", AppointmentsAPI.CreateAppointment),
		unaryMethod("ListAppointments", AppointmentsAPI.ListAppointments),
		unaryMethod("RescheduleAppointment", AppointmentsAPI.RescheduleAppointment),
		unaryMethod("CancelAppointment", AppointmentsAPI.CancelAppointment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salon/v1/appointments",
}

func RegisterAppointmentsServer(r grpc.ServiceRegistrar, srv AppointmentsAPI) {
	r.RegisterService(&appointmentsServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

func unaryMethod[Req, Resp any](name string, call func(AppointmentsAPI, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AppointmentsAPI), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AppointmentsAPI), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls salon.v1.Appointments using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) CreateAppointment(ctx context.Context, in *CreateAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	out := new(AppointmentResponse)
	if err := c.invoke(ctx, "CreateAppointment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAppointments(ctx context.Context, in *ListAppointmentsRequest, opts ...grpc.CallOption) (*ListAppointmentsResponse, error) {
	out := new(ListAppointmentsResponse)
	if err := c.invoke(ctx, "ListAppointments", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RescheduleAppointment(ctx context.Context, in *RescheduleAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	out := new(AppointmentResponse)
	if err := c.invoke(ctx, "RescheduleAppointment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CancelAppointment(ctx context.Context, in *CancelAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	out := new(AppointmentResponse)
	if err := c.invoke(ctx, "CancelAppointment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}
